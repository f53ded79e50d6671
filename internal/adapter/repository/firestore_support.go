package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatterbox/internal/domain/repository"
	apperrors "chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// storeError maps a Firestore failure onto the application error taxonomy.
func storeError(resource, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch status.Code(err) {
	case codes.NotFound:
		return apperrors.NotFound(resource, err)
	case codes.AlreadyExists:
		return apperrors.Conflict(resource + " already exists")
	case codes.PermissionDenied:
		return apperrors.Forbidden("Permission denied while trying to "+op, err)
	}
	return apperrors.Store("Failed to "+op, err)
}

func stopped(ctx context.Context, err error) bool {
	if ctx.Err() != nil || err == iterator.Done {
		return true
	}
	return status.Code(err) == codes.Canceled
}

// watchDocument streams snapshots of ref into onChange until the returned
// CancelFunc is called. A missing document is delivered as the zero value.
func watchDocument[T any](
	ctx context.Context,
	ref *firestore.DocumentRef,
	decode func(*firestore.DocumentSnapshot) (T, error),
	onChange repository.ChangeFunc[T],
) repository.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	it := ref.Snapshots(ctx)

	go func() {
		defer it.Stop()
		var zero T
		for {
			snap, err := it.Next()
			if err != nil {
				if stopped(ctx, err) {
					return
				}
				logger.Warn("Snapshot listener on %s failed: %v", ref.Path, err)
				onChange(zero, storeError("Document", "listen to "+ref.ID, err))
				return
			}
			if !snap.Exists() {
				onChange(zero, nil)
				continue
			}
			onChange(decode(snap))
		}
	}()

	return repository.CancelFunc(cancel)
}

// watchFirst streams the first document of query, or the zero value when the
// query matches nothing.
func watchFirst[T any](
	ctx context.Context,
	query firestore.Query,
	decode func(*firestore.DocumentSnapshot) (T, error),
	onChange repository.ChangeFunc[T],
) repository.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	it := query.Limit(1).Snapshots(ctx)

	go func() {
		defer it.Stop()
		var zero T
		for {
			qs, err := it.Next()
			if err != nil {
				if stopped(ctx, err) {
					return
				}
				logger.Warn("Query snapshot listener failed: %v", err)
				onChange(zero, storeError("Query", "listen to query", err))
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				onChange(zero, storeError("Query", "read query snapshot", err))
				continue
			}
			if len(docs) == 0 {
				onChange(zero, nil)
				continue
			}
			onChange(decode(docs[0]))
		}
	}()

	return repository.CancelFunc(cancel)
}

// FirestorePinger checks that the users collection is readable.
type FirestorePinger struct {
	client *firestore.Client
}

func NewFirestorePinger(client *firestore.Client) *FirestorePinger {
	return &FirestorePinger{client: client}
}

func (p *FirestorePinger) Ping(ctx context.Context) error {
	_, err := p.client.Collection(usersCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		return storeError("users", "reach the store", err)
	}
	return nil
}
