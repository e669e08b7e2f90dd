package middleware

import (
	"context"
	"net/http"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/candh/internal/historyloader"
	"github.com/rpattn/candh/internal/repository"
)

type ctxKey string

const historyLoaderKey ctxKey = "historyLoader"

// DataLoaderMiddleware attaches a per-request history loader to the context
func DataLoaderMiddleware(repo repository.HistoryRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := historyloader.NewHistoryLoader(repo)
			ctx := context.WithValue(r.Context(), historyLoaderKey, loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HistoryLoaderFromContext retrieves the dataloader from context
func HistoryLoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(historyLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}
