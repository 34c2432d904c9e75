package ircrelay

import (
	"log/slog"
	"sync"
)

// msgQueue is a bounded FIFO queue of pending PRIVMSG payloads for one
// Session. When full, Enqueue drops the oldest pending message to make
// room for the newest, and logs once per exceeded threshold (see §9 of
// the design notes: the source leaves queue bounds unspecified, this
// picks a bounded queue with a drop-oldest policy and a visible depth).
type msgQueue struct {
	mu            sync.Mutex
	items         []string
	maxSize       int
	warnThreshold int
	warned        bool
	totalDropped  int64
	totalEnqueued int64
	logger        *slog.Logger
	channel       ChannelKey
}

func newMsgQueue(maxSize int, channel ChannelKey, logger *slog.Logger) *msgQueue {
	if maxSize <= 0 {
		maxSize = 2048
	}
	return &msgQueue{
		items:         make([]string, 0, maxSize),
		maxSize:       maxSize,
		warnThreshold: (maxSize * 3) / 4,
		logger:        logger,
		channel:       channel,
	}
}

// Enqueue appends text to the queue, dropping the oldest pending message
// if the queue is already full. Returns true if a message was dropped.
func (q *msgQueue) Enqueue(text string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := false
	if len(q.items) >= q.maxSize {
		q.items = q.items[1:]
		q.totalDropped++
		dropped = true
		q.logger.Warn("session queue full, dropping oldest message",
			"channel", q.channel.String(),
			"max_size", q.maxSize,
			"total_dropped", q.totalDropped,
		)
	}

	q.items = append(q.items, text)
	q.totalEnqueued++

	if len(q.items) >= q.warnThreshold && !q.warned {
		q.warned = true
		q.logger.Warn("session queue exceeds 75% capacity",
			"channel", q.channel.String(),
			"current_size", len(q.items),
			"max_size", q.maxSize,
		)
	} else if len(q.items) < q.warnThreshold {
		q.warned = false
	}

	return dropped
}

// Peek returns the head of the queue without removing it.
func (q *msgQueue) Peek() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	return q.items[0], true
}

// Pop removes the head of the queue. It is a no-op if the queue is empty.
func (q *msgQueue) Pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return
	}
	q.items = q.items[1:]
}

// Len returns the current depth of the queue.
func (q *msgQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns a point-in-time snapshot of queue counters.
type queueStats struct {
	CurrentSize   int
	MaxSize       int
	TotalEnqueued int64
	TotalDropped  int64
}

func (q *msgQueue) Stats() queueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return queueStats{
		CurrentSize:   len(q.items),
		MaxSize:       q.maxSize,
		TotalEnqueued: q.totalEnqueued,
		TotalDropped:  q.totalDropped,
	}
}
