package validation

// OfficeResource is the resource name carried on office violations.
const OfficeResource = "office"

// officeSchema is the static command schema for the office resource. locale
// and dateFormat ride along with every command and pass through unvalidated.
//
// companyStatus deliberately switches kind between modes: create validates it
// as a non-blank string, update validates it as a non-null date. That is the
// upstream contract and callers depend on it.
var officeSchema = NewCommandSchema(OfficeResource, []FieldSpec{
	{Name: "name", Kind: KindString, RequiredOnCreate: true, Rules: RuleSet{NotBlank: true, MaxLength: 100}},
	{Name: "openingDate", Kind: KindDate, RequiredOnCreate: true, Rules: RuleSet{NotNull: true}},
	{Name: "externalId", Kind: KindString, Rules: RuleSet{MaxLength: 100}},
	{Name: "parentId", Kind: KindInteger, Rules: RuleSet{NotNull: true, GreaterThanZero: true}},
	{Name: "cin", Kind: KindString, RequiredOnCreate: true, Rules: RuleSet{NotBlank: true, MaxLength: 100}},
	{Name: "roc", Kind: KindString, RequiredOnCreate: true, Rules: RuleSet{NotBlank: true, MaxLength: 100}},
	{Name: "companyName", Kind: KindString, RequiredOnCreate: true, Rules: RuleSet{NotBlank: true, MaxLength: 100}},
	{Name: "companyStatus", Kind: KindString, RequiredOnCreate: true, Rules: RuleSet{NotBlank: true, MaxLength: 100},
		Update: &ModeOverride{Kind: KindDate, Rules: RuleSet{NotNull: true}}},
	{Name: "registrationAddress", Kind: KindString, RequiredOnCreate: true, Rules: RuleSet{NotBlank: true, MaxLength: 100}},
	{Name: "incorporatedDate", Kind: KindDate, RequiredOnCreate: true, Rules: RuleSet{NotNull: true}},
	{Name: "funds", Kind: KindInteger, RequiredOnCreate: true, Rules: RuleSet{NotNull: true, GreaterThanZero: true}},
	{Name: "registrationNumber", Kind: KindInteger, RequiredOnCreate: true, Rules: RuleSet{NotNull: true, GreaterThanZero: true}},
}, "locale", "dateFormat")

// OfficeSchema returns the office command schema.
func OfficeSchema() CommandSchema {
	return officeSchema
}

// NewOfficeValidator returns a validator for office create/update commands.
func NewOfficeValidator() *Validator {
	return NewValidator(officeSchema)
}
