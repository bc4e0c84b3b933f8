package graphframe

import "context"

// fakeResult is the test-only Result implementation: a fixed row set.
type fakeResult struct {
	rows []map[string]any
}

func (r *fakeResult) Records() []map[string]any { return r.rows }

// fakeExecutor is a scripted Executor: each Run call consumes the next
// entry in responses (repeating the last entry once exhausted), and every
// call is recorded for assertions on the query text/params actually sent.
type fakeExecutor struct {
	responses []fakeResponse
	calls     []fakeCall
	next      int
}

type fakeResponse struct {
	rows []map[string]any
	err  error
}

type fakeCall struct {
	query  string
	params map[string]any
}

func newFakeExecutor(responses ...fakeResponse) *fakeExecutor {
	return &fakeExecutor{responses: responses}
}

func rowsResponse(rows ...map[string]any) fakeResponse {
	return fakeResponse{rows: rows}
}

func (e *fakeExecutor) Run(ctx context.Context, query string, params map[string]any) (Result, error) {
	e.calls = append(e.calls, fakeCall{query: query, params: params})
	if len(e.responses) == 0 {
		return &fakeResult{}, nil
	}
	idx := e.next
	if idx >= len(e.responses) {
		idx = len(e.responses) - 1
	} else {
		e.next++
	}
	resp := e.responses[idx]
	if resp.err != nil {
		return nil, resp.err
	}
	return &fakeResult{rows: resp.rows}, nil
}
