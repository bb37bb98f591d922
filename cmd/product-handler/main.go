// Package main implements the product service Lambda handler. One entry
// point serves both the API Gateway proxy routes and the scheduled
// EventBridge invocation that takes an on-demand table backup.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"dynamodb-disaster-recovery/internal/logging"
	"dynamodb-disaster-recovery/internal/product"
	"dynamodb-disaster-recovery/internal/tracing"
)

var logger = logging.New()

// config is the function's environment contract. TABLE_NAME is injected by
// the infrastructure stack.
type config struct {
	TableName string `env:"TABLE_NAME,required"`
	ScanLimit int32  `env:"SCAN_PAGE_LIMIT" envDefault:"100"`
}

// ProductStore defines the product operations the handler needs.
type ProductStore interface {
	Add(ctx context.Context, in *product.AddProductInput) (string, error)
	Get(ctx context.Context, productID string) (*product.Product, error)
	List(ctx context.Context, limit int32, startKey string) (*product.Page, error)
	Update(ctx context.Context, in *product.UpdateProductInput) error
	Delete(ctx context.Context, productID string) error
	CreateBackup(ctx context.Context) (*product.BackupDetails, error)
}

// handler dispatches incoming events to the product store.
type handler struct {
	store     ProductStore
	scanLimit int32
}

// newHandler creates a new handler.
func newHandler(store ProductStore, scanLimit int32) *handler {
	return &handler{store: store, scanLimit: scanLimit}
}

// handle is the single Lambda entry point. EventBridge invocations carry
// "source": "aws.events"; everything else is treated as an API Gateway proxy
// request. Neither caller guarantees at-most-once delivery, so every branch
// tolerates retries.
func (h *handler) handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	tracer := tracing.Tracer("product-handler")
	ctx, span := tracer.Start(ctx, "ProductHandler")
	defer span.End()

	var probe struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		logger.ErrorContext(ctx, "Unparseable event payload", slog.String("error", err.Error()))
		return jsonResponse(http.StatusBadRequest, map[string]any{"message": "Bad request"}), nil
	}

	if probe.Source == "aws.events" {
		return h.handleScheduled(ctx)
	}

	var request events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		logger.ErrorContext(ctx, "Unparseable proxy request", slog.String("error", err.Error()))
		return jsonResponse(http.StatusBadRequest, map[string]any{"message": "Bad request"}), nil
	}
	return h.handleAPI(ctx, &request)
}

// handleScheduled takes an on-demand backup of the product table.
func (h *handler) handleScheduled(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	logger.InfoContext(ctx, "Scheduled invocation, creating table backup")

	details, err := h.store.CreateBackup(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create backup", slog.String("error", err.Error()))
		return jsonResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}), nil
	}

	logger.InfoContext(ctx, "Backup created", slog.String("backup_arn", details.BackupArn))
	return jsonResponse(http.StatusOK, map[string]any{
		"message":        "Backup created",
		"backup_details": details,
	}), nil
}

// handleAPI routes an API Gateway proxy request by method and path. The
// gateway declares no required parameters, so all input validation lives
// here.
func (h *handler) handleAPI(ctx context.Context, request *events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Path {
	case "POST /addProduct":
		return h.addProduct(ctx, request.Body)
	case "GET /getProduct":
		return h.getProduct(ctx, request.QueryStringParameters["product_id"])
	case "GET /getProducts":
		return h.getProducts(ctx, request.QueryStringParameters)
	case "PUT /updateProduct":
		return h.updateProduct(ctx, request.Body)
	case "DELETE /deleteProduct":
		return h.deleteProduct(ctx, request.QueryStringParameters["product_id"])
	default:
		logger.InfoContext(ctx, "Unroutable request",
			slog.String("method", request.HTTPMethod),
			slog.String("path", request.Path),
		)
		return jsonResponse(http.StatusBadRequest, map[string]any{"message": "Bad request"}), nil
	}
}

func (h *handler) addProduct(ctx context.Context, body string) (events.APIGatewayProxyResponse, error) {
	var in product.AddProductInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "invalid JSON body"}), nil
	}
	if err := in.Validate(); err != nil {
		return validationResponse(ctx, err)
	}

	id, err := h.store.Add(ctx, &in)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to add product", slog.String("error", err.Error()))
		return jsonResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}), nil
	}

	logger.InfoContext(ctx, "Product added", slog.String("product_id", id))
	return jsonResponse(http.StatusCreated, map[string]any{"product_id": id}), nil
}

func (h *handler) getProduct(ctx context.Context, productID string) (events.APIGatewayProxyResponse, error) {
	if productID == "" {
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "product_id is required"}), nil
	}

	p, err := h.store.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return jsonResponse(http.StatusNotFound, map[string]any{"error": "product not found"}), nil
		}
		logger.ErrorContext(ctx, "Failed to get product",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return jsonResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}), nil
	}
	return jsonResponse(http.StatusOK, p), nil
}

func (h *handler) getProducts(ctx context.Context, params map[string]string) (events.APIGatewayProxyResponse, error) {
	limit := h.scanLimit
	if raw := params["limit"]; raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			return jsonResponse(http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"}), nil
		}
		limit = int32(parsed)
	}

	page, err := h.store.List(ctx, limit, params["lastEvaluatedKey"])
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list products", slog.String("error", err.Error()))
		return jsonResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}), nil
	}
	return jsonResponse(http.StatusOK, page), nil
}

func (h *handler) updateProduct(ctx context.Context, body string) (events.APIGatewayProxyResponse, error) {
	var in product.UpdateProductInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "invalid JSON body"}), nil
	}
	if err := in.Validate(); err != nil {
		return validationResponse(ctx, err)
	}

	if err := h.store.Update(ctx, &in); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return jsonResponse(http.StatusNotFound, map[string]any{"error": "product not found"}), nil
		}
		logger.ErrorContext(ctx, "Failed to update product",
			slog.String("product_id", in.ProductID),
			slog.String("error", err.Error()),
		)
		return jsonResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}), nil
	}

	logger.InfoContext(ctx, "Product updated", slog.String("product_id", in.ProductID))
	return jsonResponse(http.StatusOK, map[string]any{"message": "Product updated"}), nil
}

func (h *handler) deleteProduct(ctx context.Context, productID string) (events.APIGatewayProxyResponse, error) {
	if productID == "" {
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "product_id is required"}), nil
	}

	if err := h.store.Delete(ctx, productID); err != nil {
		logger.ErrorContext(ctx, "Failed to delete product",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return jsonResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}), nil
	}

	logger.InfoContext(ctx, "Product deleted", slog.String("product_id", productID))
	return jsonResponse(http.StatusOK, map[string]any{"message": "Product deleted"}), nil
}

// validationResponse reports a payload validation failure as a 400.
func validationResponse(ctx context.Context, err error) (events.APIGatewayProxyResponse, error) {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		logger.InfoContext(ctx, "Payload validation failed", slog.String("error", fieldErrors.Error()))
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": fieldErrors.Error()}), nil
	}
	return jsonResponse(http.StatusBadRequest, map[string]any{"error": err.Error()}), nil
}

// jsonResponse marshals body into a proxy response. Marshal failures fall
// back to a bare 500 so the gateway always receives a well-formed response.
func jsonResponse(status int, body any) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"response encoding failed"}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(payload),
	}
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Error("FATAL: Failed to parse environment", slog.String("error", err.Error()))
		panic(err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config", slog.String("error", err.Error()))
		panic(err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	repo := product.NewRepository(client, cfg.TableName)

	h := newHandler(repo, cfg.ScanLimit)
	lambda.Start(h.handle)
}
