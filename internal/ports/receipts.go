package ports

import "github.com/doylet/guardrails-ai-sub001/internal/domain/receipt"

// ReceiptStore is the receipts adapter contract (spec.md §4.5).
type ReceiptStore interface {
	Get(component string) (receipt.Receipt, bool, error)
	Put(component string, r receipt.Receipt) error
	Delete(component string) error
	List() ([]receipt.Receipt, error)
	IsCurrent(component, manifestDigest string) (bool, error)
}
