package git

import (
	"context"
	"strconv"
	"strings"
)

// StatusInfo summarizes the work tree state the hooks act on
type StatusInfo struct {
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Root   string `json:"root"`

	// AheadCount is the number of commits ahead of the upstream branch
	AheadCount int `json:"ahead_count"`
	// BehindCount is the number of commits behind the upstream branch
	BehindCount int `json:"behind_count"`

	ModifiedCount  int  `json:"modified_count"`
	UntrackedCount int  `json:"untracked_count"`
	StagedCount    int  `json:"staged_count"`
	IsDirty        bool `json:"is_dirty"`
	HasUpstream    bool `json:"has_upstream"`
}

// Status returns git status information for the work tree containing dir
func (r *CLIRepository) Status(ctx context.Context, dir string) (*StatusInfo, error) {
	repo, branch, err := r.GetRepoInfo(ctx, dir)
	if err != nil {
		return nil, err
	}
	root, err := r.Root(ctx, dir)
	if err != nil {
		return nil, err
	}

	out, err := r.output(ctx, root, "status", "--porcelain=v2", "--branch", "-z")
	if err != nil {
		return nil, err
	}

	status := parsePorcelainV2(out)
	status.Repo = repo
	status.Branch = branch
	status.Root = root
	return status, nil
}

// parsePorcelainV2 parses NUL-terminated `git status --porcelain=v2 --branch`
// output. Rename entries carry their original path as an extra record,
// which is skipped.
func parsePorcelainV2(out []byte) *StatusInfo {
	status := &StatusInfo{}
	records := splitNUL(out)

	for i := 0; i < len(records); i++ {
		line := records[i]

		if strings.HasPrefix(line, "# ") {
			parts := strings.Fields(line)
			if len(parts) < 3 {
				continue
			}
			switch parts[1] {
			case "branch.upstream":
				status.HasUpstream = true
			case "branch.ab":
				status.AheadCount, _ = strconv.Atoi(strings.TrimPrefix(parts[2], "+"))
				if len(parts) > 3 {
					status.BehindCount, _ = strconv.Atoi(strings.TrimPrefix(parts[3], "-"))
				}
			}
			continue
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "?":
			status.UntrackedCount++
		case "1", "2":
			if parts[0] == "2" {
				i++
			}
			if len(parts) < 2 || len(parts[1]) < 2 {
				continue
			}
			// '.' means unchanged in that column
			if parts[1][0] != '.' {
				status.StagedCount++
			}
			if parts[1][1] != '.' {
				status.ModifiedCount++
			}
		case "u":
			status.StagedCount++
			status.ModifiedCount++
		}
	}

	status.IsDirty = status.ModifiedCount > 0 || status.UntrackedCount > 0 || status.StagedCount > 0
	return status
}
