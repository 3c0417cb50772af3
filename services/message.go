package services

import (
	"bytes"
	"fmt"
	"math"
	"text/template"

	"recovery-service/models"
)

// recoveryMessageTemplate is the fixed WhatsApp text body for recovery
// messages. The link goes last so the client renders its preview.
const recoveryMessageTemplate = `Hi {{if .Name}}{{.Name}}{{else}}there{{end}}! 👋

You left some items in your cart at {{.StoreName}}:

{{range .Items}}• {{.Name}} x{{.Quantity}} — {{printf "%.2f" .Price}}
{{end}}
Total: {{printf "%.2f" .Total}}

{{if .DiscountCode}}Use code {{.DiscountCode}}{{if gt .DiscountPercent 0}} for {{.DiscountPercent}}% off{{end}} and complete your order here:{{else}}Complete your order before your cart expires:{{end}}
{{.URL}}`

var recoveryTmpl = template.Must(template.New("recovery").Parse(recoveryMessageTemplate))

type recoveryMessageData struct {
	Name            string
	StoreName       string
	Items           []models.CartItem
	Total           float64
	DiscountCode    string
	DiscountPercent int
	URL             string
}

// BuildRecoveryMessage renders the recovery message body for a cart. The
// discount percentage is derived from the cart's discount amount; a zero
// total yields no percentage rather than a division by zero.
func BuildRecoveryMessage(storeName string, cart *models.Cart, recoveryURL string) (string, error) {
	data := recoveryMessageData{
		Name:         cart.CustomerName,
		StoreName:    storeName,
		Items:        cart.Items,
		Total:        cart.Total,
		DiscountCode: cart.DiscountCode,
		URL:          recoveryURL,
	}
	if cart.DiscountAmount > 0 && cart.Total > 0 {
		data.DiscountPercent = int(math.Round(cart.DiscountAmount / cart.Total * 100))
	}

	var buf bytes.Buffer
	if err := recoveryTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render recovery message: %w", err)
	}
	return buf.String(), nil
}
