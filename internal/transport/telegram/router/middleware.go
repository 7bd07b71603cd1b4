package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	logx "mcstatusbot/pkg/logx"
)

// wrap applies mws so that the first one is the outermost.
func wrap(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func withTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// recoverPanic turns a handler panic into an error.
func recoverPanic() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					req.Logger.Error("command panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func logRequest() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			if err != nil {
				req.Logger.Warn("command failed", logx.Duration("took", time.Since(start)), logx.Err(err))
				return err
			}
			req.Logger.Info("command handled", logx.Duration("took", time.Since(start)))
			return nil
		}
	}
}

// replyOnError answers the user when a handler returns an error it did
// not report itself.
func replyOnError() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			err := next(ctx, req)
			if err != nil && req.Adapter != nil {
				_ = req.Reply(context.WithoutCancel(ctx), "⚠️ Command failed, see the bot log for details.")
			}
			return err
		}
	}
}
