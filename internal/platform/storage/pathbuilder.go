package storage

import (
	"fmt"
	"strings"
)

// ArtifactPurpose selects the layout rule for an object key.
type ArtifactPurpose string

const (
	PurposeInvoice      ArtifactPurpose = "invoice"
	PurposeGroceryImage ArtifactPurpose = "grocery-image"
)

// PathParams carry the identifiers an object key is composed from.
type PathParams struct {
	Prefix   string
	OrderID  string
	FileName string
}

// PathBuilder composes the object key for one purpose.
type PathBuilder func(PathParams) (string, error)

var pathBuilders = map[ArtifactPurpose]PathBuilder{
	PurposeInvoice:      buildInvoicePath,
	PurposeGroceryImage: buildGroceryImagePath,
}

// BuildObjectPath resolves the object key for purpose.
func BuildObjectPath(purpose ArtifactPurpose, params PathParams) (string, error) {
	builder, ok := pathBuilders[purpose]
	if !ok {
		return "", fmt.Errorf("storage: unsupported artifact purpose %q", purpose)
	}
	return builder(params)
}

// bills/{orderId}-bill.pdf
func buildInvoicePath(params PathParams) (string, error) {
	orderID, err := validateSegment("orderID", params.OrderID)
	if err != nil {
		return "", err
	}
	return joinPrefix(params.Prefix, "bills", orderID+"-bill.pdf"), nil
}

// orders/{orderId}-{fileName}
func buildGroceryImagePath(params PathParams) (string, error) {
	orderID, err := validateSegment("orderID", params.OrderID)
	if err != nil {
		return "", err
	}
	fileName, err := validateSegment("fileName", params.FileName)
	if err != nil {
		return "", err
	}
	return joinPrefix(params.Prefix, "orders", orderID+"-"+fileName), nil
}

func joinPrefix(prefix, fallback, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = fallback
	}
	return prefix + "/" + name
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

// Keys resolves artifact keys under configured prefixes.
type Keys struct {
	Prefix        string
	GroceryPrefix string
}

// InvoiceKey returns the bill object key for an order.
func (k Keys) InvoiceKey(orderID string) (string, error) {
	return BuildObjectPath(PurposeInvoice, PathParams{Prefix: k.Prefix, OrderID: orderID})
}

// GroceryImageKey returns the object key for a grocery list photo uploaded with an order.
func (k Keys) GroceryImageKey(orderID, fileName string) (string, error) {
	return BuildObjectPath(PurposeGroceryImage, PathParams{Prefix: k.GroceryPrefix, OrderID: orderID, FileName: fileName})
}
