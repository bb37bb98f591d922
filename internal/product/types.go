// Package product implements the product catalogue persisted in DynamoDB,
// including the on-demand table backup used by the scheduled invocation.
package product

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrProductNotFound is returned when the requested product does not exist.
var ErrProductNotFound = errors.New("product not found")

// Product is a single item in the product table. The table enforces only the
// partition key; the remaining attributes are the conventional product shape.
type Product struct {
	ProductID       string  `dynamodbav:"product_id" json:"product_id"`
	ProductCategory string  `dynamodbav:"product_category" json:"product_category"`
	ProductTitle    string  `dynamodbav:"product_title" json:"product_title"`
	SumRating       float64 `dynamodbav:"sum_rating" json:"sum_rating"`
	CountRating     int64   `dynamodbav:"count_rating" json:"count_rating"`
}

// AddProductInput is the create payload. The id is generated server-side.
type AddProductInput struct {
	ProductCategory string `json:"product_category" validate:"required"`
	ProductTitle    string `json:"product_title" validate:"required"`
}

// UpdateProductInput is the update payload. All fields are required; the
// update is rejected when the product does not already exist.
type UpdateProductInput struct {
	ProductID       string `json:"product_id" validate:"required"`
	ProductCategory string `json:"product_category" validate:"required"`
	ProductTitle    string `json:"product_title" validate:"required"`
}

// Page is one scan page of products. LastEvaluatedKey carries the product id
// to resume from; it is empty on the final page.
type Page struct {
	Items            []Product `json:"Items"`
	LastEvaluatedKey string    `json:"LastEvaluatedKey,omitempty"`
}

// BackupDetails describes an on-demand table backup.
type BackupDetails struct {
	BackupArn              string `json:"BackupArn"`
	BackupName             string `json:"BackupName"`
	BackupStatus           string `json:"BackupStatus"`
	BackupType             string `json:"BackupType"`
	BackupCreationDateTime string `json:"BackupCreationDateTime"`
}

var validate = validator.New()

// Validate checks the create payload.
func (in *AddProductInput) Validate() error {
	return validate.Struct(in)
}

// Validate checks the update payload.
func (in *UpdateProductInput) Validate() error {
	return validate.Struct(in)
}
