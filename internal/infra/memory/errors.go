package memory

import (
	"fmt"

	repo "fulfillment/internal/repository"
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
}
