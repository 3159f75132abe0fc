package queue

import "context"

// Client hands audit jobs to a queue backend. A nil Client on the audits
// service means jobs complete in-process instead.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
