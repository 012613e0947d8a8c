package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tavolo/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReceiptService renders a confirmed order into a plain-text receipt and
// archives it. Callers treat every error as logging-grade: receipt failures
// never fail a confirmation.
type ReceiptService interface {
	Generate(ctx context.Context, order *models.Order) error
	Render(order *models.Order) string
	GetReceiptURL(orderID string, expiry time.Duration) (string, error)
}

type receiptService struct {
	client *minio.Client
	bucket string
}

func NewReceiptService(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ReceiptService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &receiptService{client: client, bucket: bucket}, nil
}

func (s *receiptService) EnsureBucketExists(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !found {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Render lays out the receipt text. The thermal-printer formatting itself
// lives with the printing collaborator; this is the archival copy.
func (s *receiptService) Render(order *models.Order) string {
	var b strings.Builder
	b.WriteString("TAVOLO\n")
	b.WriteString(fmt.Sprintf("Order: %s\n", order.ID.String()))
	if order.PaymentReference != nil {
		b.WriteString(fmt.Sprintf("Reference: %s\n", *order.PaymentReference))
	}
	if order.CustomerName != nil {
		b.WriteString(fmt.Sprintf("Customer: %s\n", *order.CustomerName))
	}
	if order.TableNumber != nil {
		b.WriteString(fmt.Sprintf("Table: %d\n", *order.TableNumber))
	}
	b.WriteString(fmt.Sprintf("Type: %s\n", order.OrderType))
	b.WriteString("--------------------------------\n")
	for _, line := range order.Items {
		b.WriteString(fmt.Sprintf("%d x %s @ %.2f = %.2f\n", line.Quantity, line.ItemID.String(), line.UnitPrice, line.Subtotal))
	}
	b.WriteString("--------------------------------\n")
	b.WriteString(fmt.Sprintf("TOTAL: %.2f\n", order.TotalAmount))
	if order.PaymentMethod != nil {
		b.WriteString(fmt.Sprintf("Paid by: %s\n", *order.PaymentMethod))
	}
	b.WriteString(order.CreatedAt.Format("2006-01-02 15:04:05") + "\n")
	return b.String()
}

func (s *receiptService) Generate(ctx context.Context, order *models.Order) error {
	if err := s.EnsureBucketExists(ctx); err != nil {
		return err
	}
	content := s.Render(order)
	objectName := fmt.Sprintf("receipts/%s.txt", order.ID.String())
	_, err := s.client.PutObject(ctx, s.bucket, objectName, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	return err
}

func (s *receiptService) GetReceiptURL(orderID string, expiry time.Duration) (string, error) {
	objectName := fmt.Sprintf("receipts/%s.txt", orderID)
	url, err := s.client.PresignedGetObject(context.Background(), s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}
