package identity

import "sync"

// Listener receives session changes. A nil user means signed out.
type Listener func(user *User)

// Notifier fans session changes out to subscribers in subscription order.
// New subscribers immediately receive the current state.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	order     []int
	listeners map[int]Listener
	current   *User
}

// NewNotifier creates a notifier whose initial state is signed out.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[int]Listener)}
}

// Subscribe registers fn and returns a func that removes it. The returned
// func is safe to call more than once.
func (n *Notifier) Subscribe(fn Listener) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.order = append(n.order, id)
	current := cloneUser(n.current)
	n.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish records user as the current session and delivers it to every listener.
func (n *Notifier) Publish(user *User) {
	n.mu.Lock()
	n.current = cloneUser(user)
	targets := make([]Listener, 0, len(n.order))
	for _, id := range n.order {
		targets = append(targets, n.listeners[id])
	}
	n.mu.Unlock()

	for _, fn := range targets {
		fn(cloneUser(user))
	}
}

// Current returns the last published user, nil when signed out.
func (n *Notifier) Current() *User {
	n.mu.Lock()
	defer n.mu.Unlock()
	return cloneUser(n.current)
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
