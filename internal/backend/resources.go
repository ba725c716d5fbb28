package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// Product is the NFC card product sold by the storefront.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
}

// Country is a delivery country.
type Country struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	IsActive     bool   `json:"isActive"`
	DisplayOrder int    `json:"displayOrder"`
	IsDeleted    bool   `json:"isDeleted"`
}

// CityCountry is the country reference embedded in a city.
type CityCountry struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// City is a delivery city with its flat delivery fee.
type City struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name"`
	Country      CityCountry     `json:"country"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee"`
	IsActive     bool            `json:"isActive"`
	DisplayOrder int             `json:"displayOrder"`
	IsDeleted    bool            `json:"isDeleted"`
}

// CreatedOrder is the backend's acknowledgement of a new order.
type CreatedOrder struct {
	ID     string `json:"_id"`
	Status string `json:"status"`
}

// Page is one page of raw records passed through to the admin console.
type Page struct {
	Items      []json.RawMessage `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// GetProduct fetches a product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	if _, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// CreateOrder posts a single-card order. payload is encoded as-is.
func (c *Client) CreateOrder(ctx context.Context, payload any) (CreatedOrder, error) {
	var out CreatedOrder
	if _, err := c.do(ctx, http.MethodPost, "/orders", payload, &out); err != nil {
		return CreatedOrder{}, err
	}
	return out, nil
}

// CreateCustomOrder posts a bulk company order.
func (c *Client) CreateCustomOrder(ctx context.Context, payload any) (CreatedOrder, error) {
	var out CreatedOrder
	if _, err := c.do(ctx, http.MethodPost, "/custom-orders", payload, &out); err != nil {
		return CreatedOrder{}, err
	}
	return out, nil
}

// ListCountries returns every country known to the backend.
func (c *Client) ListCountries(ctx context.Context) ([]Country, error) {
	var out []Country
	if _, err := c.do(ctx, http.MethodGet, "/countries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCities returns every city known to the backend.
func (c *Client) ListCities(ctx context.Context) ([]City, error) {
	var out []City
	if _, err := c.do(ctx, http.MethodGet, "/cities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCity fetches a city by id.
func (c *Client) GetCity(ctx context.Context, id string) (City, error) {
	var out City
	if _, err := c.do(ctx, http.MethodGet, "/cities/"+url.PathEscape(id), nil, &out); err != nil {
		return City{}, err
	}
	return out, nil
}

// ListOrders returns one page of single-card orders.
func (c *Client) ListOrders(ctx context.Context, page, limit int) (Page, error) {
	return c.list(ctx, "/orders", page, limit)
}

// ListCustomOrders returns one page of bulk company orders.
func (c *Client) ListCustomOrders(ctx context.Context, page, limit int) (Page, error) {
	return c.list(ctx, "/custom-orders", page, limit)
}

// ListMessages returns one page of contact-form messages.
func (c *Client) ListMessages(ctx context.Context, page, limit int) (Page, error) {
	return c.list(ctx, "/contact", page, limit)
}

func (c *Client) list(ctx context.Context, path string, page, limit int) (Page, error) {
	if page < 1 || limit < 1 {
		return Page{}, fmt.Errorf("list %s: invalid page %d/limit %d", path, page, limit)
	}
	var items []json.RawMessage
	pagination, err := c.do(ctx, http.MethodGet, path+pageQuery(page, limit), nil, &items)
	if err != nil {
		return Page{}, err
	}
	out := Page{Items: items}
	if out.Items == nil {
		out.Items = []json.RawMessage{}
	}
	if pagination != nil {
		out.Pagination = *pagination
	} else {
		out.Pagination = Pagination{CurrentPage: page, TotalPages: 1, TotalItems: len(items), ItemsPerPage: limit}
	}
	return out, nil
}
