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

// Package classifier turns note text into a model.Classification. No
// implementation returns an error: any failure yields the fallback.
package classifier

import (
	"context"
	"strings"

	"github.com/jerry-enebeli/notebox/model"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

type Classifier interface {
	Classify(ctx context.Context, text string, categories []string) model.Classification
}

// Static always answers with the fallback classification.
type Static struct{}

func (Static) Classify(_ context.Context, text string, _ []string) model.Classification {
	return model.FallbackClassification(text)
}

// categoryDrift is the share of the longer name that may differ for two
// category names to be considered the same.
const categoryDrift = 30.0

// Coerce forces a raw model answer into the accepted value sets. categories
// is the live set; an empty set means the defaults.
func Coerce(c model.Classification, text string, categories []string) model.Classification {
	if len(categories) == 0 {
		categories = model.DefaultCategories
	}

	c.ItemType = model.ItemType(strings.ToLower(strings.TrimSpace(string(c.ItemType))))
	if !c.ItemType.Valid() {
		c.ItemType = model.ItemIdea
	}

	c.Category = matchCategory(c.Category, categories)

	c.TimeBucket = strings.TrimSpace(c.TimeBucket)
	if !model.ValidTimeBucket(c.TimeBucket) {
		c.TimeBucket = model.BucketNone
	}

	if c.ItemType == model.ItemEvent {
		c.IsEvent = true
	}

	c.Summary = strings.TrimSpace(c.Summary)
	if c.Summary == "" {
		c.Summary = model.DefaultSummary(text)
	}
	return c
}

func matchCategory(raw string, categories []string) string {
	want := strings.ToLower(strings.TrimSpace(raw))
	if want != "" {
		for _, c := range categories {
			if strings.ToLower(c) == want {
				return c
			}
		}
		if len(want) >= 3 {
			for _, c := range categories {
				lc := strings.ToLower(c)
				if strings.Contains(want, lc) || strings.Contains(lc, want) {
					return c
				}
			}
		}
		for _, c := range categories {
			if similar(want, strings.ToLower(c)) {
				return c
			}
		}
	}
	return otherCategory(categories)
}

func otherCategory(categories []string) string {
	for _, c := range categories {
		if strings.EqualFold(c, model.CategoryOther) {
			return c
		}
	}
	return categories[len(categories)-1]
}

func similar(a, b string) bool {
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	longest := float64(max(len([]rune(a)), len([]rune(b))))
	return distance <= int(longest*(categoryDrift/100))
}
