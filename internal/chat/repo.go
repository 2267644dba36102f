package chat

import "context"

// Repo persists chat sessions and their messages.
type Repo interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	AppendMessages(ctx context.Context, id string, msgs ...Message) error
	Delete(ctx context.Context, id string) error
}
