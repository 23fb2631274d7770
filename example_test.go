package schematron_test

import (
	"fmt"

	"github.com/jacoelho/schematron"
)

func ExampleValidate() {
	rules := `<schema xmlns="http://purl.oclc.org/dsdl/schematron">
  <pattern id="required-elements">
    <rule context="book">
      <assert test="title">Each book must have a title</assert>
    </rule>
  </pattern>
</schema>`

	findings := schematron.Validate(rules, `<book><author>Donovan</author></book>`)
	for _, f := range findings {
		fmt.Printf("%s: %s\n", f.Severity, f.Message)
	}
	// Output:
	// error: Each book must have a title
}

func ExampleSchema_Validate() {
	rules := `<schema xmlns="http://purl.oclc.org/dsdl/schematron">
  <pattern>
    <rule context="invoice">
      <assert test="total">An invoice must state its total</assert>
      <report test="draft">Invoice <value-of select="@id"/> is still a draft</report>
    </rule>
  </pattern>
</schema>`

	compiled, err := schematron.CompileString(rules)
	if err != nil {
		fmt.Println("compile:", err)
		return
	}

	findings, err := compiled.ValidateString(`<invoice id="inv-7"><total>120.00</total><draft/></invoice>`)
	if err != nil {
		fmt.Println("validate:", err)
		return
	}
	for _, f := range findings {
		fmt.Printf("%s: %s\n", f.Severity, f.Message)
	}
	// Output:
	// error: Invoice inv-7 is still a draft
}
