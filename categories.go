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

package notebox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/notebox/model"
	"github.com/sirupsen/logrus"
)

const (
	categoriesCacheKey = "notebox:config:categories"
	categoriesCacheTTL = 5 * time.Minute
	maxCategoryLength  = 40
)

var ErrInvalidCategories = errors.New("invalid categories")

// Categories returns the live category set: cache, then the Config table,
// then the defaults when the table is empty.
func (n *Notebox) Categories(ctx context.Context) ([]string, error) {
	if n.cache != nil {
		var cached []string
		found, err := n.cache.Get(ctx, categoriesCacheKey, &cached)
		if err != nil {
			logrus.WithError(err).Warn("categories cache read failed")
		}
		if found && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := n.store.Scan(ctx, n.tables.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	var categories []string
	for _, row := range rows {
		if len(row.Cells) == 0 {
			continue
		}
		if c := strings.TrimSpace(row.Cells[0]); c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		categories = append([]string(nil), model.DefaultCategories...)
	}

	if n.cache != nil {
		if err := n.cache.Set(ctx, categoriesCacheKey, categories, categoriesCacheTTL); err != nil {
			logrus.WithError(err).Warn("categories cache write failed")
		}
	}
	return categories, nil
}

// liveCategories never fails; storage trouble falls back to the defaults.
func (n *Notebox) liveCategories(ctx context.Context) []string {
	categories, err := n.Categories(ctx)
	if err != nil {
		logrus.WithError(err).Warn("using default categories")
		return model.DefaultCategories
	}
	return categories
}

// NormalizeCategories trims the list and checks it is usable as a live set.
func NormalizeCategories(categories []string) ([]string, error) {
	out := make([]string, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidCategories, c)
		}
		seen[key] = true
		out = append(out, c)
	}

	err := validation.Validate(out,
		validation.Required,
		validation.Each(validation.Required, validation.RuneLength(1, maxCategoryLength)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCategories, err)
	}
	return out, nil
}

// ReplaceCategories rewrites the Config table with categories.
func (n *Notebox) ReplaceCategories(ctx context.Context, categories []string) ([]string, error) {
	normalized, err := NormalizeCategories(categories)
	if err != nil {
		return nil, err
	}

	rows, err := n.store.Scan(ctx, n.tables.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	// Reuse existing rows in place, then append or delete the difference.
	for i, c := range normalized {
		if i < len(rows) {
			err = n.store.Update(ctx, rows[i].Locator, "", []string{c})
		} else {
			_, err = n.store.Append(ctx, n.tables.Config, []string{c})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write category %q: %w", c, err)
		}
	}
	// Delete from the bottom so earlier locators stay valid on row-indexed stores.
	for i := len(rows) - 1; i >= len(normalized); i-- {
		if err := n.store.Delete(ctx, rows[i].Locator); err != nil {
			return nil, fmt.Errorf("failed to trim categories: %w", err)
		}
	}

	if n.cache != nil {
		if err := n.cache.Delete(ctx, categoriesCacheKey); err != nil {
			logrus.WithError(err).Warn("categories cache invalidation failed")
		}
	}
	logrus.WithField("count", len(normalized)).Info("categories replaced")
	return normalized, nil
}
