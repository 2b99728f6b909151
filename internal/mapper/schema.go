package mapper

// =============================================================================
// RECORD KINDS
// =============================================================================

// Kind identifies the business entity a sheet row maps to.
type Kind int

const (
	Holding Kind = iota + 1
	FixedDeposit
	Check
	Purchase
	Sale
	Exchange
	WeeklyDeposit
)

func (k Kind) String() string {
	switch k {
	case Holding:
		return "holding"
	case FixedDeposit:
		return "fixed-deposit"
	case Check:
		return "check"
	case Purchase:
		return "purchase"
	case Sale:
		return "sale"
	case Exchange:
		return "exchange"
	case WeeklyDeposit:
		return "weekly-deposit"
	}
	return "unknown"
}

// Weekly reports whether the kind is a weekly operation.
func (k Kind) Weekly() bool {
	return k >= Purchase
}

// =============================================================================
// FIELD RULES
// =============================================================================

type rule int

const (
	ruleText     rule = iota // string-cast copy of the cell
	ruleLiteral              // constant tag value
	ruleNumber               // number with fixed places
	ruleInteger              // integer, always a JSON number
	ruleQuantity             // 6 places for fund instruments, integer otherwise
	ruleDate                 // 8-digit date in the configured order
)

// paseRef names the columns deciding whether pase fields apply.
type paseRef struct {
	typeColumn      string
	valuationColumn string
}

type fieldSpec struct {
	name       string
	rule       rule
	places     int
	literal    string
	fundColumn string
	optional   bool
	pase       *paseRef
}

func text(name string) fieldSpec { return fieldSpec{name: name, rule: ruleText} }
func literal(name, v string) fieldSpec { return fieldSpec{name: name, rule: ruleLiteral, literal: v} }
func number(name string, places int) fieldSpec {
	return fieldSpec{name: name, rule: ruleNumber, places: places}
}
func integer(name string) fieldSpec { return fieldSpec{name: name, rule: ruleInteger} }
func date(name string) fieldSpec { return fieldSpec{name: name, rule: ruleDate} }
func quantity(name, fundColumn string) fieldSpec {
	return fieldSpec{name: name, rule: ruleQuantity, places: fundPlaces, fundColumn: fundColumn}
}

func (f fieldSpec) optionalColumn() fieldSpec {
	f.optional = true
	return f
}

func (f fieldSpec) paseOf(typeColumn, valuationColumn string) fieldSpec {
	f.pase = &paseRef{typeColumn: typeColumn, valuationColumn: valuationColumn}
	return f
}

const (
	fundType   = "FC"
	fundPlaces = 6
	cycleField = "CRONOGRAMA"
)

// =============================================================================
// WIRE SCHEMAS
// =============================================================================

var schemas = map[Kind][]fieldSpec{
	Holding: {
		literal("TIPO", "I"),
		text("TIPOESPECIE"),
		text("CODIGOESPECIE"),
		quantity("CANTIDADDEVENGADOESPECIES", "TIPOESPECIE"),
		quantity("CANTIDADPERCIBIDOESPECIES", "TIPOESPECIE"),
		number("CODIGOAFECTACION", 0),
		text("TIPOVALUACION"),
		number("CONCOTIZACION", 0),
		number("LIBREDISPONIBILIDAD", 0),
		number("EMISORGRUPOECONOMICO", 0),
		number("EMISORARTRET", 0),
		number("PREVISIONDESVALORIZACION", 0),
		number("VALORCONTABLE", 0),
		date("FECHAPASEVT"),
		number("PRECIOPASEVT", 2),
		number("ENCUSTODIA", 0),
		number("FINANCIERA", 0),
		number("VALORFINANCIERO", 0),
	},
	FixedDeposit: {
		literal("TIPO", "P"),
		text("TIPOPF"),
		text("BIC"),
		text("CDF"),
		date("FECHACONSTITUCION"),
		date("FECHAVENCIMIENTO"),
		text("MONEDA"),
		number("VALORNOMINALORIGEN", 0),
		number("VALORNOMINALNACIONAL", 0),
		number("EMISORGRUPOECONOMICO", 0),
		number("LIBREDISPONIBILIDAD", 0),
		number("ENCUSTODIA", 0),
		number("CODIGOAFECTACION", 0),
		text("TIPOTASA"),
		number("TASA", 3),
		integer("TITULODEUDA"),
		text("CODIGOTITULO").optionalColumn(),
		number("VALORCONTABLE", 0),
		number("FINANCIERA", 0),
	},
	Check: {
		literal("TIPO", "C"),
		text("CODIGOSGR"),
		text("CODIGOCHEQUE"),
		date("FECHAEMISION"),
		date("FECHAVENCIMIENTO"),
		text("MONEDA"),
		number("VALORNOMINAL", 0),
		number("VALORADQUISICION", 0),
		number("EMISORGRUPOECONOMICO", 0),
		number("LIBREDISPONIBILIDAD", 0),
		number("ENCUSTODIA", 0),
		number("CODIGOAFECTACION", 0),
		text("TIPOTASA"),
		number("TASA", 2),
		number("VALORCONTABLE", 0),
		number("FINANCIERA", 0),
		date("FECHAADQUISICION"),
	},
	Purchase: {
		literal("TIPOOPERACION", "C"),
		text("TIPOESPECIE"),
		text("CODIGOESPECIE"),
		quantity("CANTESPECIES", "TIPOESPECIE"),
		text("CODIGOAFECTACION"),
		text("TIPOVALUACION"),
		date("FECHAMOVIMIENTO"),
		number("PRECIOCOMPRA", 0),
		date("FECHALIQUIDACION"),
	},
	Sale: {
		literal("TIPOOPERACION", "V"),
		text("TIPOESPECIE"),
		text("CODIGOESPECIE"),
		quantity("CANTESPECIES", "TIPOESPECIE"),
		text("CODIGOAFECTACION"),
		text("TIPOVALUACION"),
		date("FECHAMOVIMIENTO"),
		date("FECHAPASEVT").optionalColumn().paseOf("TIPOESPECIE", "TIPOVALUACION"),
		number("PRECIOPASEVT", 2).optionalColumn().paseOf("TIPOESPECIE", "TIPOVALUACION"),
		date("FECHALIQUIDACION"),
		number("PRECIOVENTA", 0),
	},
	Exchange: {
		literal("TIPOOPERACION", "J"),
		text("TIPOESPECIEA"),
		text("CODIGOESPECIEA"),
		quantity("CANTESPECIESA", "TIPOESPECIEA"),
		text("CODIGOAFECTACIONA"),
		text("TIPOVALUACIONA"),
		date("FECHAPASEVTA").optionalColumn().paseOf("TIPOESPECIEA", "TIPOVALUACIONA"),
		number("PRECIOPASEVTA", 2).optionalColumn().paseOf("TIPOESPECIEA", "TIPOVALUACIONA"),
		text("TIPOESPECIEB"),
		text("CODIGOESPECIEB"),
		quantity("CANTESPECIESB", "TIPOESPECIEB"),
		text("CODIGOAFECTACIONB"),
		text("TIPOVALUACIONB"),
		date("FECHAPASEVTB").optionalColumn().paseOf("TIPOESPECIEB", "TIPOVALUACIONB"),
		number("PRECIOPASEVTB", 2).optionalColumn().paseOf("TIPOESPECIEB", "TIPOVALUACIONB"),
		date("FECHAMOVIMIENTO"),
		date("FECHALIQUIDACION"),
	},
	WeeklyDeposit: {
		literal("TIPOOPERACION", "P"),
		text("TIPOPF"),
		text("BIC"),
		text("CDF"),
		date("FECHACONSTITUCION"),
		date("FECHAVENCIMIENTO"),
		text("MONEDA"),
		number("VALORNOMINALORIGEN", 0),
		number("VALORNOMINALNACIONAL", 0),
		text("CODIGOAFECTACION"),
		text("TIPOTASA"),
		number("TASA", 3),
		integer("TITULODEUDA"),
		text("CODIGOTITULO").optionalColumn(),
	},
}

// Columns returns the ordered wire field names of kind.
func Columns(kind Kind) []string {
	specs := schemas[kind]
	names := make([]string, len(specs))
	for i, f := range specs {
		names[i] = f.name
	}
	return names
}
