package client

import "sync"

// Reducer folds an action into state. Reducers must not modify the state
// they are given: any slice of State that changes is replaced with a new
// value, and unchanged slices keep their identity. Reducers run with the
// store locked and must not call back into it.
type Reducer func(State, Action) State

// Store holds application state. Actions are processed one at a time, in
// dispatch order, through the middleware chain and then the reducer.
type Store struct {
	reducer  Reducer
	dispatch DispatchFunc

	mu       sync.Mutex
	state    State
	queue    []Action
	draining bool
	subs     map[int]func()
	nextSub  int
}

// NewStore builds a store. Middlewares wrap each other in order: the first
// one sees every action first.
func NewStore(reducer Reducer, initial State, mws ...Middleware) *Store {
	s := &Store{
		reducer: reducer,
		state:   initial,
		subs:    make(map[int]func()),
	}
	next := s.reduce
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](s)(next)
	}
	s.dispatch = next
	return s
}

// Dispatch queues an action. If no other goroutine is processing actions,
// the calling goroutine drains the queue before returning; otherwise the
// action is picked up by the goroutine already draining. Dispatching from a
// middleware or a subscriber is safe and never deadlocks.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.queue = append(s.queue, a)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.dispatch(next)
	}
}

// GetState returns the current state snapshot.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every state transition. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) reduce(a Action) {
	s.mu.Lock()
	s.state = s.reducer(s.state, a)
	subs := make([]func(), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
