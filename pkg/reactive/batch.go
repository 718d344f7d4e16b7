package reactive

// queuePendingUpdate records a listener to notify once the outermost batch
// completes.
func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

// Batch runs fn with signal notifications deferred: every write inside fn
// queues its subscribers, and when the outermost Batch returns each
// affected listener is marked dirty exactly once. Use it to make a group
// of related writes observable as a single transition.
//
//	reactive.Batch(func() {
//	    files.Clear()
//	    progress.Set(0)
//	    processing.SetFalse()
//	})
func Batch(fn func()) {
	ctx := getTrackingContext()
	ctx.batchDepth++

	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth > 0 {
			return
		}

		updates := ctx.pendingUpdates
		ctx.pendingUpdates = nil

		// Deduplicate by listener ID; a listener touched by several
		// writes still gets one notification.
		seen := make(map[uint64]struct{}, len(updates))
		for _, l := range updates {
			if _, ok := seen[l.ID()]; ok {
				continue
			}
			seen[l.ID()] = struct{}{}
			l.MarkDirty()
		}
	}()

	fn()
}
