package model

import (
	"github.com/shopspring/decimal"
)

// ServiceType is the fixed catalog of bookable services.
type ServiceType string

const (
	ServiceConsultation ServiceType = "CONSULTATION"
	ServiceInstallation ServiceType = "INSTALLATION"
	ServiceRepair       ServiceType = "REPAIR"
	ServiceMaintenance  ServiceType = "MAINTENANCE"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceConsultation, ServiceInstallation, ServiceRepair, ServiceMaintenance:
		return true
	}
	return false
}

// CatalogEntry is a priced service as shown to customers.
type CatalogEntry struct {
	Type        ServiceType     `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"-"`
	PriceText   string          `json:"price"`
}
