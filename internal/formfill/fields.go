package formfill

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/user/ferry-watch/internal/browser"
	"github.com/user/ferry-watch/internal/domain"
)

// Importance decides how loudly a field that could not be filled is reported.
type Importance int

const (
	Optional Importance = iota
	Standard
	Essential
)

func (i Importance) String() string {
	switch i {
	case Essential:
		return "essential"
	case Standard:
		return "standard"
	default:
		return "optional"
	}
}

// Action applies a value to the element a candidate selector matched.
type Action func(ctx context.Context, page browser.Page, sel domain.Selector) error

// Field is one logical form input with its ordered selector guesses.
type Field struct {
	Name       string
	Importance Importance
	// Wait polls each candidate up to the probe timeout instead of checking once.
	Wait       bool
	Candidates []domain.Selector
	Action     Action
}

const (
	isoDateLayout   = "2006-01-02"
	localDateLayout = "02/01/2006"
)

var (
	formSelector    = domain.CSS("form, .booking-form, .search-form")
	resultsSelector = domain.CSS(".results, .ferry-results, .availability, .no-availability, .error-message")
)

// Click presses the matched element.
func Click() Action {
	return func(ctx context.Context, page browser.Page, sel domain.Selector) error {
		return page.Click(ctx, sel)
	}
}

// Select picks the first of labels the matched select element offers.
func Select(labels ...string) Action {
	return func(ctx context.Context, page browser.Page, sel domain.Selector) error {
		if len(labels) == 0 {
			return fmt.Errorf("%w: no option labels", browser.ErrRejected)
		}
		var errs []error
		for _, label := range labels {
			err := page.SelectOption(ctx, sel, label)
			if err == nil {
				return nil
			}
			if !errors.Is(err, browser.ErrRejected) {
				return err
			}
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
}

// Fill types value into the matched input.
func Fill(value string) Action {
	return func(ctx context.Context, page browser.Page, sel domain.Selector) error {
		return page.Fill(ctx, sel, value)
	}
}

// FillDate enters date in ISO form and falls back to dd/mm/yyyy when the
// input reads back empty.
func FillDate(date time.Time, settle time.Duration) Action {
	return func(ctx context.Context, page browser.Page, sel domain.Selector) error {
		for _, layout := range []string{isoDateLayout, localDateLayout} {
			if err := page.Fill(ctx, sel, date.Format(layout)); err != nil {
				return err
			}
			if err := browser.Pause(ctx, settle); err != nil {
				return err
			}
			got, err := page.Value(ctx, sel)
			if err != nil {
				return err
			}
			if strings.TrimSpace(got) != "" {
				return nil
			}
		}
		return fmt.Errorf("%w: date %s left empty", browser.ErrRejected, date.Format(isoDateLayout))
	}
}

// Fields lists the booking form inputs in the order they are filled.
func Fields(c domain.SearchCriteria, dateSettle time.Duration) []Field {
	fields := []Field{
		{
			Name:       "journey_type",
			Importance: Standard,
			Candidates: []domain.Selector{
				domain.CSS(`input[type="radio"][value="return"]`),
				domain.CSS(`input[name="journeyType"][value="return"]`),
				domain.CSS(`.return-journey input`),
				domain.WithText("label", "Return"),
			},
			Action: Click(),
		},
		portField("departure_port", "departure", c.DeparturePort),
		portField("arrival_port", "arrival", c.ArrivalPort),
		{
			Name:       "outbound_date",
			Importance: Standard,
			Candidates: []domain.Selector{
				domain.CSS(`input[name="departureDate"]`),
				domain.CSS(`#departureDate`),
				domain.CSS(`.outbound-date input`),
				domain.CSS(`input[type="date"]`),
			},
			Action: FillDate(c.OutboundDate, dateSettle),
		},
		{
			Name:       "return_date",
			Importance: Standard,
			Candidates: []domain.Selector{
				domain.CSS(`input[name="returnDate"]`),
				domain.CSS(`#returnDate`),
				domain.CSS(`.return-date input`),
				domain.CSS(`input[type="date"]:nth-of-type(2)`),
			},
			Action: FillDate(c.ReturnDate, dateSettle),
		},
		passengerField("adults", "Adult", c.Adults),
		passengerField("children", "Child", c.Children),
		passengerField("infants", "Infant", c.Infants),
	}

	if c.VehicleType == "" {
		return fields
	}
	fields = append(fields,
		Field{
			Name:       "add_vehicle",
			Importance: Optional,
			Candidates: []domain.Selector{
				domain.WithText("button", "Add Vehicle"),
				domain.CSS(`.add-vehicle`),
				domain.CSS(`#addVehicle`),
			},
			Action: Click(),
		},
		Field{
			Name:       "vehicle_type",
			Importance: Standard,
			Candidates: []domain.Selector{
				domain.CSS(`select[name="vehicleType"]`),
				domain.CSS(`#vehicleType`),
				domain.CSS(`.vehicle-type`),
			},
			Action: Select(c.VehicleType),
		},
	)
	if len(c.VehicleSizes) > 0 {
		fields = append(fields, Field{
			Name:       "vehicle_size",
			Importance: Optional,
			Candidates: []domain.Selector{
				domain.CSS(`select[name="vehicleSize"]`),
				domain.CSS(`#vehicleSize`),
				domain.CSS(`.vehicle-size`),
			},
			Action: Select(c.VehicleSizes...),
		})
	}
	return fields
}

// SearchField is the button that submits the form.
func SearchField() Field {
	return Field{
		Name:       "search",
		Importance: Essential,
		Candidates: []domain.Selector{
			domain.WithText("button", "Search"),
			domain.CSS(`input[type="submit"]`),
			domain.CSS(`.search-button`),
			domain.CSS(`#searchButton`),
			domain.CSS(`button[type="submit"]`),
			domain.CSS(`.btn-search`),
		},
		Action: Click(),
	}
}

func portField(name, prefix, port string) Field {
	return Field{
		Name:       name,
		Importance: Essential,
		Wait:       true,
		Candidates: []domain.Selector{
			domain.CSS(fmt.Sprintf(`select[name="%sPort"]`, prefix)),
			domain.CSS(fmt.Sprintf(`#%sPort`, prefix)),
			domain.CSS(fmt.Sprintf(`.%s-port select`, prefix)),
			domain.Containing("select", port),
		},
		Action: Select(port),
	}
}

func passengerField(name, placeholder string, count int) Field {
	return Field{
		Name:       name,
		Importance: Standard,
		Candidates: []domain.Selector{
			domain.CSS(fmt.Sprintf(`input[name="%s"]`, name)),
			domain.CSS("#" + name),
			domain.CSS(fmt.Sprintf(`.%s-count input`, name)),
			domain.CSS(fmt.Sprintf(`input[placeholder*="%s"]`, placeholder)),
		},
		Action: Fill(strconv.Itoa(count)),
	}
}
