package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"

	"syncbridge/internal/store"

	"github.com/shopspring/decimal"
)

// Item is one raw record of a sync batch as decoded from JSON.
// Numbers are expected as json.Number (decoder.UseNumber) but float64 and
// native ints are accepted too.
type Item map[string]any

// Field limits mirrored from the database schema.
const (
	maxEmailLength = 254
	maxNameLength  = 150
	moneyDigits    = 12
	moneyPlaces    = 2
)

const (
	msgRequired   = "This field is required."
	msgNull       = "This field may not be null."
	msgBlank      = "This field may not be blank."
	msgString     = "Not a valid string."
	msgInteger    = "A valid integer is required."
	msgNumber     = "A valid number is required."
	msgBoolean    = "Must be a valid boolean."
	msgEmail      = "Enter a valid email address."
	msgCurrency   = "Ensure this field is a 3-letter currency code."
	msgDatetime   = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	msgMaxDigits  = "Ensure that there are no more than 12 digits in total."
	msgMaxPlaces  = "Ensure that there are no more than 2 decimal places."
	msgMaxWhole   = "Ensure that there are no more than 10 digits before the decimal point."
	msgEmptyItems = "This list may not be empty."
	msgMaxValue   = "Ensure this value is less than or equal to %d."
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CanonicalKey converts a camelCase key to snake_case by inserting an
// underscore before every upper-case ASCII letter except a leading one and
// lower-casing the result. Keys already in snake_case are returned unchanged.
func CanonicalKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range key {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// CanonicalKeys applies CanonicalKey to every top-level key of item.
// When two keys collide, the one that was already canonical wins; otherwise
// the lexically last original key wins.
func CanonicalKeys(item Item) Item {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Item, len(item))
	canonical := make(map[string]bool, len(item))
	for _, k := range keys {
		ck := CanonicalKey(k)
		if canonical[ck] {
			continue
		}
		out[ck] = item[k]
		if ck == k {
			canonical[ck] = true
		}
	}
	return out
}

// decoder reads typed fields out of an Item, collecting violations.
type decoder struct {
	item   Item
	prefix string
	v      *Violations
}

func (d *decoder) fail(key, msg string) {
	d.v.Add(d.prefix+key, msg)
}

func (d *decoder) raw(key string) (any, bool) {
	val, ok := d.item[key]
	return val, ok
}

// text returns the trimmed string form of a scalar, or false for non-scalars.
func text(val any) (string, bool) {
	switch s := val.(type) {
	case string:
		return strings.TrimSpace(s), true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	}
	return "", false
}

// str reads a non-null, non-blank string.
func (d *decoder) str(key string, maxLen int) store.Field[string] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[string]{}
	}
	if val == nil {
		d.fail(key, msgNull)
		return store.Field[string]{}
	}
	s, ok := text(val)
	if !ok {
		d.fail(key, msgString)
		return store.Field[string]{}
	}
	if s == "" {
		d.fail(key, msgBlank)
		return store.Field[string]{}
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		d.fail(key, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
		return store.Field[string]{}
	}
	return store.Some(s)
}

// optStr reads a nullable string. Blank values are allowed.
func (d *decoder) optStr(key string, maxLen int) store.Field[*string] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[*string]{}
	}
	if val == nil {
		return store.Some[*string](nil)
	}
	s, ok := text(val)
	if !ok {
		d.fail(key, msgString)
		return store.Field[*string]{}
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		d.fail(key, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
		return store.Field[*string]{}
	}
	return store.Some(&s)
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && addr.Name == ""
}

func (d *decoder) email(key string) store.Field[string] {
	f := d.str(key, maxEmailLength)
	if f.Set && !validEmail(f.Value) {
		d.fail(key, msgEmail)
		return store.Field[string]{}
	}
	return f
}

func (d *decoder) optEmail(key string) store.Field[*string] {
	f := d.optStr(key, maxEmailLength)
	if f.Set && f.Value != nil && *f.Value != "" && !validEmail(*f.Value) {
		d.fail(key, msgEmail)
		return store.Field[*string]{}
	}
	return f
}

// currency reads a 3-letter code and upper-cases it.
func (d *decoder) currency(key string) store.Field[string] {
	f := d.str(key, 0)
	if !f.Set {
		return f
	}
	if len(f.Value) != 3 || strings.IndexFunc(f.Value, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	}) >= 0 {
		d.fail(key, msgCurrency)
		return store.Field[string]{}
	}
	return store.Some(strings.ToUpper(f.Value))
}

// toInt64 coerces JSON numbers, native ints and numeric strings.
func toInt64(val any) (int64, bool) {
	switch n := val.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		return decimalToInt64(n.String())
	case float64:
		if n != math.Trunc(n) || math.Abs(n) >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		return decimalToInt64(s)
	}
	return 0, false
}

// decimalToInt64 accepts integral decimals such as "12.0".
func decimalToInt64(s string) (int64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || !d.BigInt().IsInt64() {
		return 0, false
	}
	return d.IntPart(), true
}

// integer reads a whole number in [min, max].
func (d *decoder) integer(key string, min, max int64) store.Field[int64] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[int64]{}
	}
	if val == nil {
		d.fail(key, msgNull)
		return store.Field[int64]{}
	}
	i, ok := toInt64(val)
	if !ok {
		d.fail(key, msgInteger)
		return store.Field[int64]{}
	}
	if i < min {
		d.fail(key, fmt.Sprintf("Ensure this value is greater than or equal to %d.", min))
		return store.Field[int64]{}
	}
	if i > max {
		d.fail(key, fmt.Sprintf(msgMaxValue, max))
		return store.Field[int64]{}
	}
	return store.Some(i)
}

// optInteger reads a nullable whole number no greater than max.
func (d *decoder) optInteger(key string, max int64) store.Field[*int64] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[*int64]{}
	}
	if val == nil {
		return store.Some[*int64](nil)
	}
	i, ok := toInt64(val)
	if !ok {
		d.fail(key, msgInteger)
		return store.Field[*int64]{}
	}
	if i > max {
		d.fail(key, fmt.Sprintf(msgMaxValue, max))
		return store.Field[*int64]{}
	}
	return store.Some(&i)
}

func (d *decoder) boolean(key string) store.Field[bool] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[bool]{}
	}
	switch b := val.(type) {
	case nil:
		d.fail(key, msgNull)
		return store.Field[bool]{}
	case bool:
		return store.Some(b)
	}
	s, _ := text(val)
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "on", "t":
		return store.Some(true)
	case "false", "0", "no", "n", "off", "f":
		return store.Some(false)
	}
	d.fail(key, msgBoolean)
	return store.Field[bool]{}
}

// toDecimal parses a number without going through float64 when possible.
func toDecimal(val any) (decimal.Decimal, bool) {
	switch n := val.(type) {
	case json.Number:
		dec, err := decimal.NewFromString(n.String())
		return dec, err == nil
	case string:
		dec, err := decimal.NewFromString(strings.TrimSpace(n))
		return dec, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

// checkMoney enforces NUMERIC(12,2) precision. It returns the first failing message.
func checkMoney(dec decimal.Decimal) string {
	digits := len(strings.TrimPrefix(dec.Coefficient().String(), "-"))
	exp := int(dec.Exponent())

	var decimals int
	if exp >= 0 {
		digits += exp
	} else {
		decimals = -exp
		if decimals > digits {
			digits = decimals
		}
	}

	switch {
	case digits > moneyDigits:
		return msgMaxDigits
	case decimals > moneyPlaces:
		return msgMaxPlaces
	case digits-decimals > moneyDigits-moneyPlaces:
		return msgMaxWhole
	}
	return ""
}

func (d *decoder) money(key string) store.Field[decimal.Decimal] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[decimal.Decimal]{}
	}
	if val == nil {
		d.fail(key, msgNull)
		return store.Field[decimal.Decimal]{}
	}
	dec, ok := toDecimal(val)
	if !ok {
		d.fail(key, msgNumber)
		return store.Field[decimal.Decimal]{}
	}
	if msg := checkMoney(dec); msg != "" {
		d.fail(key, msg)
		return store.Field[decimal.Decimal]{}
	}
	return store.Some(dec)
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (d *decoder) optTime(key string) store.Field[*time.Time] {
	val, ok := d.raw(key)
	if !ok {
		return store.Field[*time.Time]{}
	}
	if val == nil {
		return store.Some[*time.Time](nil)
	}
	s, isString := val.(string)
	if !isString {
		d.fail(key, msgDatetime)
		return store.Field[*time.Time]{}
	}
	t, ok := parseDatetime(strings.TrimSpace(s))
	if !ok {
		d.fail(key, msgDatetime)
		return store.Field[*time.Time]{}
	}
	return store.Some(&t)
}

// TypeName names a JSON value the way API clients see it in error messages.
func TypeName(val any) string {
	switch val.(type) {
	case nil:
		return "NoneType"
	case string:
		return "str"
	case bool:
		return "bool"
	case json.Number, float64:
		if _, ok := toInt64(val); ok {
			return "int"
		}
		return "float"
	case int, int64, int32:
		return "int"
	case []any:
		return "list"
	case map[string]any, Item:
		return "dict"
	}
	return fmt.Sprintf("%T", val)
}
