// Command checkout places an order against a running storefront API from
// the command line.
//
//	checkout --token $TOKEN --item 64f...:65a...=2 --code save10 \
//	    --address "1 Nile St" --city Cairo --postal 11511 --country Egypt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"storefront-api/internal/cart"
	"storefront-api/internal/checkout"
	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/logger"
	"storefront-api/internal/models"
)

// defaultAPIURL points at a server started with the default configuration.
const defaultAPIURL = "http://localhost:" + config.DefaultPort

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "checkout:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("checkout", pflag.ContinueOnError)
	apiURL := fs.String("api", envOr("STOREFRONT_API_URL", defaultAPIURL), "storefront API base URL")
	token := fs.String("token", os.Getenv("STOREFRONT_TOKEN"), "bearer token")
	items := fs.StringArray("item", nil, "cart line as product[:variant]=quantity (repeatable)")
	code := fs.String("code", "", "discount code")
	lang := fs.String("lang", models.LangEnglish, "message language (en or ar)")
	payment := fs.String("payment", models.DefaultPaymentMethod, "payment method")
	var addr models.ShippingAddress
	fs.StringVar(&addr.Address, "address", "", "street address")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.PostalCode, "postal", "", "postal code")
	fs.StringVar(&addr.Country, "country", "", "country")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(level, "development")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	api := client.New(*apiURL).WithToken(*token)
	c := cart.New()
	for _, raw := range *items {
		it, err := parseItem(raw)
		if err != nil {
			return err
		}
		if err := fillItem(ctx, api, &it); err != nil {
			return fmt.Errorf("item %s: %w", raw, err)
		}
		c.Add(it)
	}

	s := checkout.New(api, c, checkout.Options{
		Lang: *lang,
		Log:  log,
		Notify: func(n checkout.Notification) {
			fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
		},
	})
	s.SetShippingAddress(addr)
	s.SetPaymentMethod(*payment)

	if *code != "" {
		s.SetDiscountCode(*code)
		if err := s.ApplyDiscount(ctx); err != nil {
			log.Debug("discount not applied", zap.Error(err))
		}
	}

	t := s.Totals()
	fmt.Fprintf(out, "subtotal %s  discount %s  total %s\n",
		t.Subtotal.StringFixed(2), t.DiscountAmount.StringFixed(2), t.FinalTotal.StringFixed(2))

	order, err := s.PlaceOrder(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s total %.2f\n", order.ID.Hex(), order.TotalPrice)
	return nil
}

// parseItem reads product[:variant]=quantity; quantity defaults to 1.
func parseItem(raw string) (cart.Item, error) {
	ids, qty, hasQty := strings.Cut(raw, "=")
	it := cart.Item{Quantity: 1}
	if hasQty {
		n, err := strconv.Atoi(qty)
		if err != nil || n <= 0 {
			return it, fmt.Errorf("invalid quantity in %q", raw)
		}
		it.Quantity = n
	}
	it.ProductID, it.VariantID, _ = strings.Cut(ids, ":")
	if it.ProductID == "" {
		return it, errors.New("item needs a product id")
	}
	return it, nil
}

// fillItem copies the display name, image and price onto a line.
func fillItem(ctx context.Context, api *client.Client, it *cart.Item) error {
	p, err := api.Product(ctx, it.ProductID)
	if err != nil {
		return err
	}
	it.Name = p.Name
	it.Image = p.MainImage
	it.Price = p.DisplayPrice
	if it.VariantID != "" {
		price, ok := p.SKUPrice(it.VariantID)
		if !ok {
			return fmt.Errorf("unknown variant %s", it.VariantID)
		}
		it.Price = price
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
