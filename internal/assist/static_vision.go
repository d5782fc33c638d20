package assist

import (
	"context"

	"github.com/example/ride-companion/internal/models"
)

// StaticDescriber returns a canned narration when no vision model is
// configured, keeping local runs functional.
type StaticDescriber struct{}

func (StaticDescriber) Describe(_ context.Context, _ []byte, _ models.PassengerProfile) (string, error) {
	return "We're passing through a quiet city street. There are shops on the right and a small park coming up on the left. The weather looks clear.", nil
}
