package llm

import "sort"

// CallAccumulator reassembles tool calls from streamed fragments.
//
// Providers emit tool calls piecemeal: a call's id, name, and argument
// string arrive split across chunks, and fragments for sibling calls
// interleave. Fragments carry a stream index identifying which call
// they extend. Accumulation rules differ per field:
//
//   - id: the first non-empty fragment wins.
//   - name: fragments are concatenated, except that a fragment equal to
//     the already-accumulated name is dropped. Some providers resend
//     the complete name in a later chunk, and appending it again would
//     corrupt it.
//   - arguments: always appended; arguments are emitted incrementally
//     as partial JSON.
type CallAccumulator struct {
	calls map[int]*partialCall
}

type partialCall struct {
	index int
	id    string
	name  string
	args  []byte
}

// NewCallAccumulator creates an empty accumulator.
func NewCallAccumulator() *CallAccumulator {
	return &CallAccumulator{calls: make(map[int]*partialCall)}
}

// Add merges one fragment into the call at its stream index.
func (a *CallAccumulator) Add(d ToolCallDelta) {
	pc, ok := a.calls[d.Index]
	if !ok {
		pc = &partialCall{index: d.Index}
		a.calls[d.Index] = pc
	}

	if pc.id == "" && d.ID != "" {
		pc.id = d.ID
	}
	if frag := d.Function.Name; frag != "" {
		if pc.name == "" || frag != pc.name {
			pc.name += frag
		}
	}
	if d.Function.Arguments != "" {
		pc.args = append(pc.args, d.Function.Arguments...)
	}
}

// Len returns the number of distinct calls seen so far.
func (a *CallAccumulator) Len() int {
	return len(a.calls)
}

// Finalize returns the reconstructed calls ordered by stream index.
// Call it only after the fragment stream is exhausted; argument strings
// for interrupted streams may be incomplete JSON, which the caller is
// expected to surface as a per-call parse error.
func (a *CallAccumulator) Finalize() []ToolCall {
	if len(a.calls) == 0 {
		return nil
	}

	partials := make([]*partialCall, 0, len(a.calls))
	for _, pc := range a.calls {
		partials = append(partials, pc)
	}
	sort.Slice(partials, func(i, j int) bool {
		return partials[i].index < partials[j].index
	})

	out := make([]ToolCall, 0, len(partials))
	for _, pc := range partials {
		out = append(out, ToolCall{
			ID:   pc.id,
			Type: "function",
			Function: FunctionCall{
				Name:      pc.name,
				Arguments: string(pc.args),
			},
		})
	}
	return out
}
