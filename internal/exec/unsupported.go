package exec

import (
	"context"
	"fmt"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

// unsupportedStrategy is the declared-unsupported path for languages whose
// server-side toolchain is not present in this deployment. It returns a
// clearly labeled placeholder with success status; a production deployment
// replaces it by registering a real sandbox strategy for the language.
type unsupportedStrategy struct {
	lang models.Language
}

func NewUnsupportedStrategy(lang models.Language) Strategy {
	return unsupportedStrategy{lang: lang}
}

func (s unsupportedStrategy) Run(_ context.Context, _, _ string) (Output, error) {
	return Output{
		Stdout: fmt.Sprintf(
			"%s execution is not available in this environment.\nThis is a simulated response for demonstration.",
			DisplayName(s.lang)),
		Simulated: true,
	}, nil
}
