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
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jerry-enebeli/notebox/model"
)

// UpdateEntry is the PATCH /api/entries/:id body. Absent fields are left
// unchanged.
type UpdateEntry struct {
	Text            *string `json:"text"`
	CreatedAtClient *string `json:"created_at_client"`
	ItemType        *string `json:"item_type"`
	TimeBucket      *string `json:"time_bucket"`
	Category        *string `json:"category"`
}

func (u *UpdateEntry) ValidateUpdateEntry() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Text, validation.NilOrNotEmpty),
		validation.Field(&u.ItemType, validation.NilOrNotEmpty, validation.By(func(value interface{}) error {
			v, _ := value.(*string)
			if v != nil && !model.ItemType(strings.ToLower(*v)).Valid() {
				return errors.New("must be one of task, event, idea, important_info")
			}
			return nil
		})),
		validation.Field(&u.TimeBucket, validation.NilOrNotEmpty),
		validation.Field(&u.Category, validation.NilOrNotEmpty),
	)
}

// ToPatch converts the request into a model.EntryPatch.
func (u *UpdateEntry) ToPatch() model.EntryPatch {
	p := model.EntryPatch{
		Text:            u.Text,
		CreatedAtClient: u.CreatedAtClient,
		TimeBucket:      u.TimeBucket,
		Category:        u.Category,
	}
	if u.ItemType != nil {
		t := model.ItemType(strings.ToLower(*u.ItemType))
		p.ItemType = &t
	}
	return p
}

// ReplaceCategories is the PUT /api/config/categories body.
type ReplaceCategories struct {
	Categories []string `json:"categories"`
}

func (r *ReplaceCategories) ValidateReplaceCategories() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Categories, validation.Required),
	)
}
