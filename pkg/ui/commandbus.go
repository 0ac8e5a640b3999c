package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind identifies one of the two tree-wide commands.
type CommandKind int

const (
	CommandCollapseAll CommandKind = iota + 1
	CommandExpandToTarget
)

func (k CommandKind) String() string {
	switch k {
	case CommandCollapseAll:
		return "collapse-all"
	case CommandExpandToTarget:
		return "expand-to-target"
	default:
		return "unknown"
	}
}

// Command is one published broadcast. Seq is unique and increasing per bus.
type Command struct {
	Kind     CommandKind
	TargetID string
	Seq      uint64
}

// Signal is the one-shot form of a command as it travels down the tree.
// A NodeView acts on a signal only when its Seq is newer than the last one it
// saw for that kind, so re-rendering with the same signal is a no-op.
// The zero Signal means "nothing published yet".
type Signal struct {
	Seq      uint64
	TargetID string
}

// Armed reports whether the signal carries a command.
func (s Signal) Armed() bool { return s.Seq != 0 }

// CommandBus carries CollapseAll and ExpandToTarget commands from publishers
// that hold no reference to the tree to the TreeView that owns the bus.
// Each TreeView has its own bus, so two trees never see each other's commands.
//
// Publishing never blocks. Commands queue per subscriber in publish order and
// are drained in one batch.
type CommandBus struct {
	mu     sync.Mutex
	seq    uint64
	nextID int
	subs   map[int]*Subscription
}

// NewCommandBus creates an empty bus.
func NewCommandBus() *CommandBus {
	return &CommandBus{subs: make(map[int]*Subscription)}
}

// Subscription is one listener's mailbox on a bus.
type Subscription struct {
	bus *CommandBus
	id  int

	mu      sync.Mutex
	pending []Command
	closed  bool

	notify    chan struct{} // buffered(1): mailbox became non-empty
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe registers a new mailbox. Close it to unsubscribe.
func (b *CommandBus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscription{
		bus:    b,
		id:     b.nextID,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	b.subs[s.id] = s
	return s
}

// SubscriberCount returns the number of open subscriptions.
func (b *CommandBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// LastSeq returns the sequence number of the most recent publish (0 if none).
func (b *CommandBus) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// PublishCollapseAll broadcasts a CollapseAll command and returns its Seq.
func (b *CommandBus) PublishCollapseAll() uint64 {
	return b.publish(CommandCollapseAll, "")
}

// PublishExpandToTarget broadcasts an ExpandToTarget command for id and
// returns its Seq. An id absent from the tree is delivered anyway and opens
// nothing.
func (b *CommandBus) PublishExpandToTarget(id string) uint64 {
	return b.publish(CommandExpandToTarget, id)
}

func (b *CommandBus) publish(kind CommandKind, target string) uint64 {
	// Delivering under the bus lock keeps every mailbox in seq order even
	// with concurrent publishers. deliver never blocks.
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	cmd := Command{Kind: kind, TargetID: target, Seq: b.seq}
	for _, s := range b.subs {
		s.deliver(cmd)
	}
	return cmd.Seq
}

func (s *Subscription) deliver(cmd Command) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, cmd)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Drain returns and clears every queued command, oldest first.
func (s *Subscription) Drain() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// Pending returns the number of queued commands.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close unsubscribes and wakes any goroutine blocked in Listen. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		s.pending = nil
		s.mu.Unlock()
		close(s.done)
	})
}

// Closed reports whether Close has been called.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CommandsMsg tells a tree that its mailbox has filled. The receiving
// TreeView drains the mailbox itself, so a synchronous Flush and the listener
// never split a batch. Commands is only set by callers that hand over an
// already drained batch.
type CommandsMsg struct {
	Sub      *Subscription
	Commands []Command
}

// Listen waits for the subscription's mailbox to fill and returns a
// CommandsMsg without draining it. It returns nil once the subscription is
// closed.
func Listen(sub *Subscription) tea.Cmd {
	return func() tea.Msg {
		if sub == nil {
			return nil
		}
		select {
		case <-sub.notify:
			return CommandsMsg{Sub: sub}
		case <-sub.done:
			return nil
		}
	}
}
