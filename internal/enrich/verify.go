package enrich

import (
	"context"
	"strings"
)

// VerificationResult is the model's judgement on a report image.
type VerificationResult struct {
	Verified bool   `json:"verified"`
	Analysis string `json:"analysis"`
}

// ImageVerifier asks the language model whether a report image plausibly
// shows the claimed disaster context. It shares the Extractor's transport.
type ImageVerifier struct {
	extractor *Extractor
}

func NewImageVerifier(extractor *Extractor) *ImageVerifier {
	return &ImageVerifier{extractor: extractor}
}

// Verify judges the image at imageURL against the disaster context. The
// model answers AUTHENTIC or SUSPECT followed by its reasoning.
func (v *ImageVerifier) Verify(ctx context.Context, imageURL, disasterContext string) (VerificationResult, error) {
	prompt := "Analyze the image at " + imageURL + " for signs of manipulation and whether it matches this disaster context: " +
		disasterContext + ". Start your answer with AUTHENTIC or SUSPECT, then explain briefly."

	answer, err := v.extractor.generate(ctx, prompt)
	if err != nil {
		return VerificationResult{}, err
	}
	answer = strings.TrimSpace(answer)
	return VerificationResult{
		Verified: strings.HasPrefix(strings.ToUpper(answer), "AUTHENTIC"),
		Analysis: answer,
	}, nil
}
