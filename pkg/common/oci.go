package common

import (
	"time"

	ispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// GetImageLastUpdated returns the image's last updated timestamp. The
// Created timestamp is used, but if it is missing, look at the history
// field and, if provided, return the timestamp of the last entry.
func GetImageLastUpdated(imageInfo ispec.Image) time.Time {
	timeStamp := imageInfo.Created

	if timeStamp != nil && !timeStamp.IsZero() {
		return *timeStamp
	}

	if len(imageInfo.History) > 0 {
		timeStamp = imageInfo.History[len(imageInfo.History)-1].Created
	}

	if timeStamp == nil {
		timeStamp = &time.Time{}
	}

	return *timeStamp
}
