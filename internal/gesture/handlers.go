package gesture

// OnClick sets the click handler of the active handler set.
func (r *Recognizer) OnClick(fn func()) {
	r.hmu.Lock()
	r.handlers[len(r.handlers)-1].OnClick = fn
	r.hmu.Unlock()
}

// OnDoubleClick sets the double-click handler of the active handler set.
func (r *Recognizer) OnDoubleClick(fn func()) {
	r.hmu.Lock()
	r.handlers[len(r.handlers)-1].OnDoubleClick = fn
	r.hmu.Unlock()
}

// OnLongPress sets the long-press handler of the active handler set.
func (r *Recognizer) OnLongPress(fn func()) {
	r.hmu.Lock()
	r.handlers[len(r.handlers)-1].OnLongPress = fn
	r.hmu.Unlock()
}

// SetHandlers replaces the active handler set.
func (r *Recognizer) SetHandlers(h Handlers) {
	r.hmu.Lock()
	r.handlers[len(r.handlers)-1] = h
	r.hmu.Unlock()
}

// Push saves the active handler set and installs h, for modes that take
// over the button temporarily.
func (r *Recognizer) Push(h Handlers) {
	r.hmu.Lock()
	r.handlers = append(r.handlers, h)
	r.hmu.Unlock()
}

// Pop restores the handler set that was active before the last Push.
// The base set is never popped; Pop then returns false.
func (r *Recognizer) Pop() bool {
	r.hmu.Lock()
	defer r.hmu.Unlock()

	if len(r.handlers) == 1 {
		return false
	}
	r.handlers[len(r.handlers)-1] = Handlers{}
	r.handlers = r.handlers[:len(r.handlers)-1]
	return true
}

// Depth returns the number of handler sets on the stack, including the base.
func (r *Recognizer) Depth() int {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	return len(r.handlers)
}

func (r *Recognizer) active() Handlers {
	r.hmu.Lock()
	defer r.hmu.Unlock()
	return r.handlers[len(r.handlers)-1]
}
