// Package snapshot persists campaign runs so a crashed run can be resumed.
package snapshot

import (
	"context"

	"outreach-service/internal/modal"
)

// Store saves and loads whole-run snapshots. Save must replace the previous
// snapshot atomically: a reader sees either the old run or the new one.
type Store interface {
	Save(ctx context.Context, run *modal.CampaignRun) error
	Load(ctx context.Context, runID string) (*modal.CampaignRun, error)
	List(ctx context.Context) ([]string, error)
}
