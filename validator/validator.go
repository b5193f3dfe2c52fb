// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package validator validates incoming request payloads before they reach
// the state managers. Validation failures are local; they never turn into
// remote calls.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// LoginPayload is a login form submission.
type LoginPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (p LoginPayload) Validate() error { return validate.Struct(p) }

// AddToCartPayload is an add-to-cart form submission.
type AddToCartPayload struct {
	ProductID string `validate:"required"`
	Quantity  uint64 `validate:"required,gte=1"`
}

func (p AddToCartPayload) Validate() error { return validate.Struct(p) }

// UpdateQuantityPayload is a set-quantity form submission.
type UpdateQuantityPayload struct {
	ProductID string `validate:"required"`
	Quantity  int64  `validate:"required,gte=1"`
}

func (p UpdateQuantityPayload) Validate() error { return validate.Struct(p) }

// RemoveFromCartPayload is a remove-line form submission.
type RemoveFromCartPayload struct {
	ProductID string `validate:"required"`
}

func (p RemoveFromCartPayload) Validate() error { return validate.Struct(p) }

// ValidationErrorResponse flattens a validator error into a single
// user-facing error.
func ValidationErrorResponse(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(fields, "; "))
}
