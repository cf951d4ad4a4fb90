/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"strings"
	"time"
)

// ItemType is the classifier's verdict on what a note is.
type ItemType string

const (
	ItemTask          ItemType = "task"
	ItemEvent         ItemType = "event"
	ItemIdea          ItemType = "idea"
	ItemImportantInfo ItemType = "important_info"
)

// ItemTypes lists every item type the classifier may return.
var ItemTypes = []ItemType{ItemTask, ItemEvent, ItemIdea, ItemImportantInfo}

// Routable reports whether notes of this type are forwarded to the executor.
func (t ItemType) Routable() bool {
	return t == ItemTask || t == ItemEvent
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Named time buckets. Anything else must be an ISO8601 timestamp.
const (
	BucketToday    = "today"
	BucketThisWeek = "this_week"
	BucketUpcoming = "upcoming"
	BucketNone     = "none"
)

// ValidTimeBucket reports whether value is a named bucket or a parseable timestamp.
func ValidTimeBucket(value string) bool {
	switch value {
	case BucketToday, BucketThisWeek, BucketUpcoming, BucketNone:
		return true
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// CategoryOther is the catch-all category.
const CategoryOther = "Other"

// DefaultCategories is the category set used until one is configured.
var DefaultCategories = []string{"Work", "Personal", "Creative", "Social", "Health", "Finance", "Admin", CategoryOther}

// Classification is the result shape of the note classifier.
type Classification struct {
	ItemType   ItemType `json:"item_type"`
	Category   string   `json:"category"`
	TimeBucket string   `json:"time_bucket"`
	IsEvent    bool     `json:"is_event"`
	Summary    string   `json:"summary"`
}

const summaryLength = 50

// FallbackClassification is returned whenever the remote classifier cannot be used.
func FallbackClassification(text string) Classification {
	return Classification{
		ItemType:   ItemIdea,
		Category:   CategoryOther,
		TimeBucket: BucketNone,
		IsEvent:    false,
		Summary:    Truncate(strings.TrimSpace(text), summaryLength),
	}
}

// DefaultSummary is the summary used when the classifier leaves it empty.
func DefaultSummary(text string) string {
	return Truncate(strings.TrimSpace(text), summaryLength)
}
