package hendelse

// Fold is a pure state-transition function. It must be free of I/O and
// side effects so that replaying the same event list always yields the same
// state, byte for byte.
type Fold[S any] func(state S, h Hendelse) (S, error)

// Replay verifies the chain and folds the events into a state value. It is
// the only way state is derived from a stream; persisted state and replayed
// state can therefore never diverge.
func Replay[S any](initial S, fold Fold[S], events []Hendelse) (S, error) {
	if err := VerifyChain(events); err != nil {
		return initial, err
	}
	state := initial
	var err error
	for _, h := range events {
		state, err = fold(state, h)
		if err != nil {
			return initial, err
		}
	}
	return state, nil
}
