// Package batcher groups function invocations into Slurm jobs.
//
// Invocations added to an AutoBatch session are grouped by their effective
// scheduler options (ConfigKey), split into chunks of at most MaxBatchSize
// calls and submitted as one job per chunk when the session closes. Calls
// registered with OnCompletion are submitted afterwards as single-call jobs
// with an afterany dependency on every job of the batch. When no scheduler is
// reachable the whole batch runs in-process instead.
//
// Typical use:
//
//	res := batcher.Run(ctx, client, client, func(b *batcher.AutoBatch) error {
//	    for _, f := range files {
//	        if err := b.Add(process, []any{f}, nil); err != nil {
//	            return err
//	        }
//	    }
//	    return b.OnCompletion(report, nil, nil)
//	}, batcher.WithMaxBatchSize(50))
package batcher
