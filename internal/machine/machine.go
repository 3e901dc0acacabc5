// Package machine implements small declarative finite-state machines.
//
// A machine is described by a Config: an initial state, a context value and,
// per state, a table mapping event types to candidate transitions. Sending an
// event picks the first candidate whose guard passes, runs the exit actions of
// the current state, the transition actions and the entry actions of the
// target state, then notifies subscribers. Events with no passing candidate
// leave the machine untouched.
package machine

import (
	"fmt"
	"sync"
)

// Event is a message sent to a machine.
type Event struct {
	Type string
	Data any
}

// Action runs during a transition. It may mutate the context.
type Action[C any] func(ctx *C, ev Event)

// Guard decides whether a transition may be taken.
type Guard[C any] func(ctx *C, ev Event) bool

// Transition is one candidate edge for an event.
type Transition[C any] struct {
	// Target is the next state; empty means stay in the current state.
	Target  string
	Actions []Action[C]
	Cond    Guard[C]
}

// StateConfig describes one state.
type StateConfig[C any] struct {
	On    map[string][]Transition[C]
	Entry []Action[C]
	Exit  []Action[C]
}

// Config describes a machine.
type Config[C any] struct {
	ID      string
	Initial string
	Context C
	States  map[string]StateConfig[C]
}

// State is a snapshot delivered to subscribers.
type State[C any] struct {
	Value   string
	Context C
	Changed bool
}

// Machine is a running state machine. It is safe for concurrent use; actions
// and listeners run with the machine locked and must not call Send.
type Machine[C any] struct {
	mu        sync.Mutex
	id        string
	states    map[string]StateConfig[C]
	value     string
	context   C
	listeners map[int]func(State[C])
	nextID    int
}

// New validates config and starts a machine in its initial state.
func New[C any](config Config[C]) (*Machine[C], error) {
	if _, ok := config.States[config.Initial]; !ok {
		return nil, fmt.Errorf("machine %s: initial state %q is not defined", config.ID, config.Initial)
	}
	for name, st := range config.States {
		for event, candidates := range st.On {
			for _, t := range candidates {
				if t.Target == "" {
					continue
				}
				if _, ok := config.States[t.Target]; !ok {
					return nil, fmt.Errorf("machine %s: state %q event %s targets unknown state %q",
						config.ID, name, event, t.Target)
				}
			}
		}
	}

	return &Machine[C]{
		id:        config.ID,
		states:    config.States,
		value:     config.Initial,
		context:   config.Context,
		listeners: make(map[int]func(State[C])),
	}, nil
}

// Must is New that panics on an invalid config. Use it for static tables.
func Must[C any](config Config[C]) *Machine[C] {
	m, err := New(config)
	if err != nil {
		panic(err)
	}

	return m
}

// ID returns the machine id.
func (m *Machine[C]) ID() string { return m.id }

// State returns the current state.
func (m *Machine[C]) State() State[C] {
	m.mu.Lock()
	defer m.mu.Unlock()

	return State[C]{Value: m.value, Context: m.context}
}

// Matches reports whether the machine is in state value.
func (m *Machine[C]) Matches(value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.value == value
}

// Can reports whether sending eventType would take a transition.
func (m *Machine[C]) Can(eventType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.pick(Event{Type: eventType})

	return ok
}

// Send delivers an event and reports whether a transition was taken.
func (m *Machine[C]) Send(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.pick(ev)
	if !ok {
		return false
	}

	current := m.states[m.value]
	for _, action := range current.Exit {
		action(&m.context, ev)
	}
	for _, action := range t.Actions {
		action(&m.context, ev)
	}
	if t.Target != "" {
		for _, action := range m.states[t.Target].Entry {
			action(&m.context, ev)
		}
		m.value = t.Target
	}

	snapshot := State[C]{Value: m.value, Context: m.context, Changed: true}
	for _, id := range m.listenerIDs() {
		m.listeners[id](snapshot)
	}

	return true
}

// SendType is Send with a bare event type.
func (m *Machine[C]) SendType(eventType string) bool {
	return m.Send(Event{Type: eventType})
}

// Subscribe registers listener for every taken transition. The returned
// function removes it.
func (m *Machine[C]) Subscribe(listener func(State[C])) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Machine[C]) pick(ev Event) (Transition[C], bool) {
	st, ok := m.states[m.value]
	if !ok {
		return Transition[C]{}, false
	}
	for _, t := range st.On[ev.Type] {
		if t.Cond == nil || t.Cond(&m.context, ev) {
			return t, true
		}
	}

	return Transition[C]{}, false
}

// listenerIDs returns subscriber ids in subscription order.
func (m *Machine[C]) listenerIDs() []int {
	ids := make([]int, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if _, ok := m.listeners[id]; ok {
			ids = append(ids, id)
		}
	}

	return ids
}

// On is shorthand for a single-candidate transition table entry.
func On[C any](target string, cond Guard[C], actions ...Action[C]) []Transition[C] {
	return []Transition[C]{{Target: target, Cond: cond, Actions: actions}}
}
