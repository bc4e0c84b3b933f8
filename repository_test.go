package graphframe

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NolanChai/graphframe-neo4j/examples/models"
)

func userNode(userId, name string) neo4j.Node {
	return neo4j.Node{
		ElementId: "node-" + userId,
		Labels:    []string{"User"},
		Props:     map[string]any{"userId": userId, "name": name},
	}
}

func TestRepositoryFindAllMapsNodesToEntities(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(
		map[string]any{"n": userNode("u1", "Ada")},
		map[string]any{"n": userNode("u2", "Grace")},
	))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	users, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].UserID)
	assert.Equal(t, "Ada", users[0].Name)
	assert.Equal(t, "u2", users[1].UserID)
}

func TestRepositoryFindByPropertyResolvesStructFieldToDBProperty(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(map[string]any{"n": userNode("u1", "Ada")}))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	users, err := repo.FindByProperty(context.Background(), "Name", "Ada")
	require.NoError(t, err)
	require.Len(t, users, 1)

	assert.Contains(t, exec.calls[0].query, "n.name = $param_0")
	assert.Equal(t, "Ada", exec.calls[0].params["param_0"])
}

func TestRepositoryFindByPropertyRejectsUnmappedField(t *testing.T) {
	exec := newFakeExecutor()
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	_, err = repo.FindByProperty(context.Background(), "NoSuchField", "x")
	require.Error(t, err)
}

func TestRepositoryFindOneReturnsErrNotFoundWhenEmpty(t *testing.T) {
	exec := newFakeExecutor(rowsResponse())
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	_, err = repo.FindOne(context.Background(), F("userId", "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryFindOneLimitsToOneRow(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(map[string]any{"n": userNode("u1", "Ada")}))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	user, err := repo.FindOne(context.Background(), F("userId", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
	assert.Contains(t, exec.calls[0].query, "LIMIT 1")
}

func TestRepositoryFindWithMultipleFilters(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(map[string]any{"n": userNode("u1", "Ada")}))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	users, err := repo.Find(context.Background(), F("name", "Ada"), F("userId__ne", "u9"))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Contains(t, exec.calls[0].query, "n.name = $param_0 AND n.userId <> $param_1")
}

func TestRepositoryCountDelegatesToFrameCount(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(map[string]any{"count": int64(3)}))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Contains(t, exec.calls[0].query, "RETURN count(n) AS count")
}

func TestRepositoryCountByPropertyBindsFilterValue(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(map[string]any{"count": int64(1)}))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	count, err := repo.CountByProperty(context.Background(), "Name", "Ada")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "Ada", exec.calls[0].params["param_0"])
}

func TestRepositoryFindByIDReturnsErrNotFoundWhenAbsent(t *testing.T) {
	exec := newFakeExecutor(rowsResponse())
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryFindByIDRejectsMultipleMatches(t *testing.T) {
	exec := newFakeExecutor(rowsResponse(
		map[string]any{"n": userNode("u1", "Ada")},
		map[string]any{"n": userNode("u1", "Ada-dup")},
	))
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	_, err = repo.FindByID(context.Background(), "u1")
	require.Error(t, err)
}

func TestRepositorySaveMergesOnPrimaryKey(t *testing.T) {
	exec := newFakeExecutor(rowsResponse())
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	err = repo.Save(context.Background(), &models.User{UserID: "u1", Name: "Ada"})
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
}

func TestRepositoryDeleteDetachesRelationships(t *testing.T) {
	exec := newFakeExecutor(rowsResponse())
	repo, err := NewRepository[models.User](exec)
	require.NoError(t, err)

	err = repo.Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, exec.calls[0].query, "DETACH DELETE")
}
