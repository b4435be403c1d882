package agent

import "errors"

// ErrIterationLimit means the reasoning loop hit its iteration cap before the
// model produced a final answer. It surfaces as a terminal error event.
var ErrIterationLimit = errors.New("reasoning loop hit the iteration cap without a final answer")
