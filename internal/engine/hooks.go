package engine

// NoHooks supplies default no-op implementations of the optional module
// hooks. Modules that don't need reconnect/disconnect/slot-transfer
// behavior beyond storing connected-flags can embed this.
type NoHooks struct{}

func (NoHooks) OnReconnect(state State, userID string) (State, error) {
	return state, nil
}

func (NoHooks) OnDisconnect(state State, userID string) (State, error) {
	return state, nil
}

func (NoHooks) TransferSlot(state State, fromUserID, toUserID string) (State, error) {
	return state, nil
}
