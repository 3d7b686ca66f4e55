package shipping

import (
	"context"
	"fmt"

	"github.com/storelinehq/storeline-backend/pkg/courier"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

// CourierBooker registers shipped orders with the courier partner
// using each tenant's API token.
type CourierBooker struct {
	client *courier.Client
}

func NewCourierBooker(client *courier.Client) (*CourierBooker, error) {
	if client == nil {
		return nil, fmt.Errorf("courier client required")
	}
	return &CourierBooker{client: client}, nil
}

// Book pushes the shipment and returns the courier tracking id.
func (b *CourierBooker) Book(ctx context.Context, t *tenant.Tenant, order *models.Order) (string, error) {
	shipment, err := b.client.BookShipment(ctx, t.CourierToken, courier.BookShipmentRequest{
		OrderNumber: order.Number,
		PickupName:  t.ID,
		DropName:    order.ShippingAddress.Name,
		DropAddress: order.ShippingAddress.String(),
		DropPhone:   order.ShippingAddress.Phone,
	})
	if err != nil {
		return "", err
	}
	return shipment.TrackingID, nil
}
