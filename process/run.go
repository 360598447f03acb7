package process

import (
	"context"

	"github.com/kbukum/execkit/cmdline"
)

// Execute runs cmd to completion. It is Start followed by Await.
func Execute(ctx context.Context, cmd *cmdline.Command, opts Options) (*Result, error) {
	inv, err := Start(ctx, cmd, opts)
	if err != nil {
		return nil, err
	}
	return inv.Await()
}
