package schematron_test

import (
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/jacoelho/schematron"
)

// A compiled schema carries no run state, so one instance can serve many
// goroutines validating different documents at once.
func TestSchemaConcurrentValidate(t *testing.T) {
	defer goleak.VerifyNone(t)

	compiled, err := schematron.CompileString(bookRules)
	if err != nil {
		t.Fatalf("CompileString() error = %v", err)
	}

	docs := []struct {
		xml     string
		wantErr bool
	}{
		{xml: `<book><title>Go</title></book>`, wantErr: false},
		{xml: `<book><author>Pike</author></book>`, wantErr: true},
		{xml: `<magazine/>`, wantErr: false},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				for _, doc := range docs {
					findings, err := compiled.ValidateString(doc.xml)
					if err != nil {
						t.Errorf("ValidateString(%q) error = %v", doc.xml, err)
						return
					}
					if got := schematron.HasErrors(findings); got != doc.wantErr {
						t.Errorf("HasErrors(%q) = %v, want %v", doc.xml, got, doc.wantErr)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
