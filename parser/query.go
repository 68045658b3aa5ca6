package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/maps-harvester/config"
	"github.com/aluiziolira/maps-harvester/models"
)

var quantityPattern = regexp.MustCompile(`\b(\d+)\b`)

// ParseQuery reads a "(search term, quantity)" style model response. The
// first standalone integer is the quantity and is removed from the term; a
// response without one asks for every available listing.
func ParseQuery(response string) (models.Query, error) {
	data := strings.TrimSpace(response)
	quantity := models.Unbounded

	if match := quantityPattern.FindStringSubmatch(data); match != nil {
		parsed, err := strconv.Atoi(match[1])
		if err != nil {
			return models.Query{}, config.Invalid("quantity", "%q is not a usable number", match[1])
		}
		quantity = parsed
		standalone := regexp.MustCompile(`\b` + regexp.QuoteMeta(match[1]) + `\b`)
		data = standalone.ReplaceAllString(data, "")
	}

	term := strings.NewReplacer(`"`, "", "(", "", ")", "", "`", "").Replace(data)
	term = strings.Trim(term, " \t\r\n,'")
	term = strings.Join(strings.Fields(term), " ")

	q := models.Query{SearchTerm: term, Quantity: quantity}
	if err := ValidateQuery(q); err != nil {
		return models.Query{}, err
	}
	return q, nil
}

// ValidateQuery rejects queries the harvester cannot run.
func ValidateQuery(q models.Query) error {
	if strings.TrimSpace(q.SearchTerm) == "" {
		return config.Invalid("search term", "cannot be empty")
	}
	if q.Quantity < 0 {
		return config.Invalid("quantity", "cannot be negative, got %d", q.Quantity)
	}
	return nil
}
