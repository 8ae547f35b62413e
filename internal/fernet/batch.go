package fernet

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// EncryptBatch seals every plaintext, returning tokens in input order. The
// first failure cancels the remaining work and is reported as a *BatchError;
// no partial results are returned.
func (c *Cipher) EncryptBatch(ctx context.Context, plaintexts []string) ([]string, error) {
	return c.batch(ctx, plaintexts, c.EncryptString)
}

// DecryptBatch opens every token, returning plaintexts in input order. It
// fails the whole batch on the first bad token.
func (c *Cipher) DecryptBatch(ctx context.Context, tokens []string) ([]string, error) {
	return c.batch(ctx, tokens, c.DecryptString)
}

func (c *Cipher) batch(ctx context.Context, in []string, fn func(string) (string, error)) ([]string, error) {
	out := make([]string, len(in))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, v := range in {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := fn(v)
			if err != nil {
				return &BatchError{Index: i, Err: err}
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
