package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DefaultScanLimit is the page size used when the caller does not supply one.
const DefaultScanLimit = 100

// backupTimeFormat yields names like product_backup_202608251000.
const backupTimeFormat = "200601021504"

// DynamoDBClient defines the DynamoDB operations the repository needs. It is
// the exact set of data-plane actions granted to the function's role.
type DynamoDBClient interface {
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, input *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateBackup(ctx context.Context, input *dynamodb.CreateBackupInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateBackupOutput, error)
}

// Repository persists products in a single DynamoDB table keyed by product_id.
type Repository struct {
	client    DynamoDBClient
	tableName string
	newID     func() string
	now       func() time.Time
}

// NewRepository creates a Repository for the given table.
func NewRepository(client DynamoDBClient, tableName string) *Repository {
	return &Repository{
		client:    client,
		tableName: tableName,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Add stores a new product under a generated id and returns that id. A random
// partition key keeps items spread evenly across partitions, and makes the
// write idempotent under caller retries of the same id.
func (r *Repository) Add(ctx context.Context, in *AddProductInput) (string, error) {
	id := r.newID()

	item, err := attributevalue.MarshalMap(Product{
		ProductID:       id,
		ProductCategory: in.ProductCategory,
		ProductTitle:    in.ProductTitle,
	})
	if err != nil {
		return "", fmt.Errorf("marshal product: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("put product: %w", err)
	}
	return id, nil
}

// Get retrieves a single product by id.
func (r *Repository) Get(ctx context.Context, productID string) (*Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       productKey(productID),
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if out.Item == nil {
		return nil, ErrProductNotFound
	}

	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// List scans one page of products. startKey resumes from a previous page's
// LastEvaluatedKey; an empty startKey reads the first page.
func (r *Repository) List(ctx context.Context, limit int32, startKey string) (*Page, error) {
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if startKey != "" {
		input.ExclusiveStartKey = productKey(startKey)
	}

	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}

	page := &Page{Items: []Product{}}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &page.Items); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	if page.Items == nil {
		page.Items = []Product{}
	}

	if key, ok := out.LastEvaluatedKey["product_id"]; ok {
		if s, ok := key.(*types.AttributeValueMemberS); ok {
			page.LastEvaluatedKey = s.Value
		}
	}
	return page, nil
}

// Update overwrites category and title of an existing product. Returns
// ErrProductNotFound when the product does not exist; the conditional write
// keeps a retried update from resurrecting a deleted item.
func (r *Repository) Update(ctx context.Context, in *UpdateProductInput) error {
	update := expression.Set(
		expression.Name("product_category"), expression.Value(in.ProductCategory),
	).Set(
		expression.Name("product_title"), expression.Value(in.ProductTitle),
	)
	condition := expression.AttributeExists(expression.Name("product_id"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("build update expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       productKey(in.ProductID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueNone,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrProductNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete removes a product. Deleting an absent product is not an error.
func (r *Repository) Delete(ctx context.Context, productID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       productKey(productID),
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// CreateBackup takes an on-demand backup of the table, named with a UTC
// minute timestamp so repeated runs are distinguishable.
func (r *Repository) CreateBackup(ctx context.Context) (*BackupDetails, error) {
	name := "product_backup_" + r.now().UTC().Format(backupTimeFormat)

	out, err := r.client.CreateBackup(ctx, &dynamodb.CreateBackupInput{
		TableName:  aws.String(r.tableName),
		BackupName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}

	details := &BackupDetails{BackupName: name}
	if d := out.BackupDetails; d != nil {
		details.BackupArn = aws.ToString(d.BackupArn)
		details.BackupName = aws.ToString(d.BackupName)
		details.BackupStatus = string(d.BackupStatus)
		details.BackupType = string(d.BackupType)
		if d.BackupCreationDateTime != nil {
			details.BackupCreationDateTime = d.BackupCreationDateTime.UTC().Format(time.RFC3339)
		}
	}
	return details, nil
}

func productKey(productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: productID},
	}
}
