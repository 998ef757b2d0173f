package sync

// FieldSpec describes a single field of a remote operation's schema.
type FieldSpec struct {
	Name        string
	Description string
	Required    bool
}

// OperationSchema is the fixed, named field set of one remote bulk operation.
// Schemas are static configuration, not runtime state.
type OperationSchema struct {
	Name          string
	Path          string // vendor API path for the bulk save call
	BulkContainer string // name of the JSON array wrapping the batch records
	Fields        []FieldSpec
}

// FieldByName returns the FieldSpec with the given name.
func (s OperationSchema) FieldByName(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RequiredFields returns the names of all required fields in schema order.
func (s OperationSchema) RequiredFields() []string {
	var result []string
	for _, f := range s.Fields {
		if f.Required {
			result = append(result, f.Name)
		}
	}
	return result
}

// FieldNames returns all field names in schema order.
func (s OperationSchema) FieldNames() []string {
	result := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		result[i] = f.Name
	}
	return result
}

// Builtin operation schemas for the vendor's bulk save calls.
var (
	// ProductSchema registers inventory items.
	ProductSchema = OperationSchema{
		Name:          "product",
		Path:          "/OAPI/V2/InventoryBasic/SaveBasicProduct",
		BulkContainer: "ProductList",
		Fields: []FieldSpec{
			{Name: "PROD_CD", Description: "Item code", Required: true},
			{Name: "PROD_DES", Description: "Item name", Required: true},
			{Name: "SIZE_DES", Description: "Specification"},
			{Name: "UNIT", Description: "Unit of measure"},
			{Name: "PROD_TYPE", Description: "Item type (product/goods/raw material)"},
			{Name: "BAR_CODE", Description: "Barcode"},
			{Name: "CLASS_CD", Description: "Item group code"},
			{Name: "IN_PRICE", Description: "Purchase price"},
			{Name: "OUT_PRICE", Description: "Sale price"},
			{Name: "VAT_YN", Description: "VAT applied (Y/N)"},
			{Name: "REMARKS", Description: "Remarks"},
		},
	}

	// CustomerSchema registers customers/vendors.
	CustomerSchema = OperationSchema{
		Name:          "customer",
		Path:          "/OAPI/V2/AccountBasic/SaveBasicCust",
		BulkContainer: "CustList",
		Fields: []FieldSpec{
			{Name: "BUSINESS_NO", Description: "Business registration number", Required: true},
			{Name: "CUST_NAME", Description: "Customer name", Required: true},
			{Name: "BOSS_NAME", Description: "Representative name"},
			{Name: "UPTAE", Description: "Business type"},
			{Name: "JONGMOK", Description: "Business item"},
			{Name: "TEL", Description: "Telephone"},
			{Name: "EMAIL", Description: "Email address"},
			{Name: "POST_NO", Description: "Postal code"},
			{Name: "ADDR", Description: "Address"},
			{Name: "NATION", Description: "Country"},
			{Name: "REMARKS", Description: "Remarks"},
		},
	}

	// SaleSchema records sale entries.
	SaleSchema = OperationSchema{
		Name:          "sale",
		Path:          "/OAPI/V2/Sale/SaveSale",
		BulkContainer: "SaleList",
		Fields: []FieldSpec{
			{Name: "IO_DATE", Description: "Sale date (YYYYMMDD)", Required: true},
			{Name: "CUST", Description: "Customer code", Required: true},
			{Name: "PROD_CD", Description: "Item code", Required: true},
			{Name: "QTY", Description: "Quantity", Required: true},
			{Name: "PRICE", Description: "Unit price"},
			{Name: "SUPPLY_AMT", Description: "Supply amount"},
			{Name: "VAT_AMT", Description: "VAT amount"},
			{Name: "WH_CD", Description: "Warehouse code"},
			{Name: "REMARKS", Description: "Remarks"},
		},
	}
)

var builtinSchemas = map[string]OperationSchema{
	ProductSchema.Name:  ProductSchema,
	CustomerSchema.Name: CustomerSchema,
	SaleSchema.Name:     SaleSchema,
}

// SchemaForOperation returns the builtin schema registered under name.
func SchemaForOperation(name string) (OperationSchema, bool) {
	s, ok := builtinSchemas[name]
	return s, ok
}
