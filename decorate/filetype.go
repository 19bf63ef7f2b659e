package decorate

import (
	"context"
	"fmt"
)

// KnownFiletypes asks the host which filetypes are installed. The set is never
// cached: syntax files can be added while the editor runs.
func KnownFiletypes(ctx context.Context, host Host) (map[string]struct{}, error) {
	names, err := host.Filetypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list filetypes: %w: %v", ErrHostQuery, err)
	}
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		known[name] = struct{}{}
	}
	return known, nil
}
