package partfinder

import (
	"context"
	"sync"

	"github.com/zombar/partfinder/models"
)

// forEachListing runs fn over the listings with at most workers concurrent
// goroutines. Each listing is handled by exactly one worker, so fn may mutate
// its listing freely without locking. Failure of one item never cancels the
// others; fn reports problems by leaving its listing unresolved.
func forEachListing(ctx context.Context, listings []*models.Listing, workers int, fn func(context.Context, *models.Listing)) {
	if len(listings) == 0 {
		return
	}
	if workers > len(listings) {
		workers = len(listings)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *models.Listing, len(listings))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for l := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				fn(ctx, l)
			}
		}()
	}

	for _, l := range listings {
		jobs <- l
	}
	close(jobs)

	wg.Wait()
}
