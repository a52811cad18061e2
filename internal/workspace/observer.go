package workspace

// observer is a subscriber's handle: it identifies itself by id so
// Unsubscribe can remove it without a back-pointer from the workspace to
// the subscriber. An observer stays registered until Unsubscribe is
// called; notifyObservers does not remove abandoned ones.
type observer struct {
	id     uint64
	notify chan struct{}
}

// Subscription lets a caller (UI poll loop, remote state-version watcher)
// unsubscribe when it's done.
type Subscription struct {
	w  *Workspace
	id uint64
}

// Subscribe registers a new observer and returns a channel that receives a
// (non-blocking, coalesced) signal after every mutation — persistable or
// UI-only — plus the Subscription handle used to Unsubscribe.
func (w *Workspace) Subscribe() (<-chan struct{}, *Subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextObsID++
	obs := &observer{id: w.nextObsID, notify: make(chan struct{}, 1)}
	w.observers = append(w.observers, obs)
	return obs.notify, &Subscription{w: w, id: obs.id}
}

// Unsubscribe removes the observer. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for i, o := range s.w.observers {
		if o.id == s.id {
			s.w.observers = append(s.w.observers[:i], s.w.observers[i+1:]...)
			return
		}
	}
}

// notifyObservers sends a coalesced ping to every live observer. Must be
// called with mu held, and only after the triggering mutation has fully
// applied — observer notifications never re-enter a mutation.
func (w *Workspace) notifyObservers() {
	for _, o := range w.observers {
		select {
		case o.notify <- struct{}{}:
		default:
		}
	}
}

// bumpDataVersion increments the persistable-state counter and notifies
// observers. Must be called with mu held.
func (w *Workspace) bumpDataVersion() {
	w.dataVersion++
	w.notifyObservers()
}

// notifyOnly notifies observers without bumping DataVersion, for UI-only
// state changes (focus, hover, drag) that don't need to survive restart.
func (w *Workspace) notifyOnly() {
	w.notifyObservers()
}
