package grocery

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/domain"
)

// Client talks to the grocery provider: product search is the public
// storefront (HTML), cart mutations are the JSON API authorized with a
// short-lived token.
type Client struct {
	baseURL    string
	apiKey     string
	cartURL    string
	httpClient *http.Client
}

// NewClient creates a live cart client. apiKey uses the id:hex-secret format.
func NewClient(baseURL, apiKey, cartURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		cartURL: cartURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCart opens a cart, adds each shopping-list line it can match to a
// product, and returns the checkout URL. Individual lines that fail to match
// or to add are skipped; the call only errors when the cart itself cannot be
// created or not a single line made it in.
func (c *Client) CreateCart(ctx context.Context, items []domain.Ingredient) (string, error) {
	cartID, err := c.openCart(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create cart: %w", err)
	}

	added := 0
	for _, item := range items {
		productID, err := c.searchProduct(ctx, item)
		if err != nil {
			log.Warn().Str("ingredient", item.Name).Err(err).Msg("product search failed")
			continue
		}
		if err := c.addToCart(ctx, cartID, productID, cartQuantity(item)); err != nil {
			log.Warn().Str("ingredient", item.Name).Err(err).Msg("failed to add product to cart")
			continue
		}
		added++
	}
	if added == 0 {
		return "", fmt.Errorf("no ingredient could be added to cart %s", cartID)
	}
	log.Info().Int("added", added).Int("requested", len(items)).Str("cart", cartID).Msg("cart created")

	return fmt.Sprintf("%s?cartId=%s", c.cartURL, url.QueryEscape(cartID)), nil
}

func (c *Client) openCart(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "POST", "/api/v1/carts", nil, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("cart api returned no cart id")
	}
	return resp.ID, nil
}

// searchProduct fetches the storefront search page and picks a product tile:
// an exact name match if one exists, otherwise the first result.
func (c *Client) searchProduct(ctx context.Context, item domain.Ingredient) (string, error) {
	query := item.Name
	if item.Unit != "" {
		query += " " + item.Unit
	}

	searchURL := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search error: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse search page: %w", err)
	}

	var first, exact string
	target := strings.ToLower(item.Name)
	doc.Find("[data-product-id]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		id, ok := sel.Attr("data-product-id")
		if !ok || id == "" {
			return true
		}
		if first == "" {
			first = id
		}
		name := strings.ToLower(strings.TrimSpace(sel.Find(".product-name").Text()))
		if name == target {
			exact = id
			return false
		}
		return true
	})

	if exact != "" {
		return exact, nil
	}
	if first != "" {
		return first, nil
	}
	return "", fmt.Errorf("no products found for %q", query)
}

func (c *Client) addToCart(ctx context.Context, cartID, productID string, count int) error {
	body := map[string]interface{}{
		"product_id": productID,
		"count":      count,
	}
	return c.doJSON(ctx, "POST", "/api/v1/carts/"+url.PathEscape(cartID)+"/items", body, nil)
}

// doJSON performs an authorized JSON call against the cart API.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.apiToken()
	if err != nil {
		return fmt.Errorf("failed to create api token: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("cart api error: status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// apiToken generates a short-lived JWT for the cart API.
func (c *Client) apiToken() (string, error) {
	keyParts := strings.Split(c.apiKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid api key format: expected id:secret")
	}

	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/v1/carts/",
	})
	token.Header["kid"] = keyParts[0]

	return token.SignedString(secret)
}

// cartQuantity maps a recipe-unit quantity onto a whole product count.
func cartQuantity(item domain.Ingredient) int {
	if item.Qty <= 0 {
		return 1
	}
	switch strings.ToLower(item.Unit) {
	case "count", "counts", "pc", "pcs", "piece", "pieces", "item", "items",
		"pack", "packs", "package", "packages", "bag", "bags", "bottle", "bottles", "jar", "jars":
		return int(math.Ceil(item.Qty))
	}
	// Measured units (grams, cups, tbsp) map to one retail package.
	return 1
}
