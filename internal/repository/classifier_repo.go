package repository

import "context"

// ClassifierRepository defines the remote image classifier.
type ClassifierRepository interface {
	// Classify reports whether the image is in the target style.
	// Every failure is reported as false.
	Classify(ctx context.Context, imageURL string) bool
}
