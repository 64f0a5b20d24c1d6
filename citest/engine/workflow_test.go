package engine_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/varlet-dev/varlet/internal/configstore"
	"github.com/varlet-dev/varlet/internal/engine"
	"github.com/varlet-dev/varlet/internal/event"
	"github.com/varlet-dev/varlet/pkg/types"
)

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

var _ = Describe("Engine Workflow", func() {
	var (
		eng    *engine.Engine
		dir    string
		events []event.Event
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "varlet-e2e-*")
		Expect(err).NotTo(HaveOccurred())

		events = nil
		eng = engine.New(configstore.NewInDir(dir), nil, nil)
		eng.Bus().SubscribeAll(func(e event.Event) {
			events = append(events, e)
		})
	})

	AfterEach(func() {
		eng.Bus().Close()
		os.RemoveAll(dir)
	})

	Describe("source list workflow", func() {
		It("validates and renders against an explicit source list", func() {
			base := writeFile(dir, "base.yml", "host: example.com\nport: 8080\n")
			over := writeFile(dir, "prod.yml", "port: 443\n")

			_, err := eng.UpdateSources(ctx, []string{base, over})
			Expect(err).NotTo(HaveOccurred())

			doc := "url: {{host}}:{{port}}\nuser: {{username}}\n"
			diags := eng.ValidateDocument(ctx, "", doc)
			Expect(diags).To(HaveLen(1))
			Expect(diags[0].Code).To(Equal(types.CodeUndefinedVariable))
			Expect(diags[0].Message).To(ContainSubstring("username"))

			rendered := eng.RenderDocument(ctx, "", doc)
			Expect(rendered).To(Equal("url: example.com:443\nuser: {{username}}\n"))
		})

		It("treats later sources as overrides in list order", func() {
			a := writeFile(dir, "a.yml", "key: first\n")
			b := writeFile(dir, "b.yml", "key: second\n")

			_, err := eng.UpdateSources(ctx, []string{a, b})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.RenderDocument(ctx, "", "v: {{key}}\n")).To(Equal("v: second\n"))

			_, err = eng.UpdateSources(ctx, []string{b, a})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.RenderDocument(ctx, "", "v: {{key}}\n")).To(Equal("v: first\n"))
		})

		It("skips missing and malformed sources without failing", func() {
			good := writeFile(dir, "good.yml", "host: ok\n")
			bad := writeFile(dir, "bad.yml", "host: [unclosed\n")
			missing := filepath.Join(dir, "missing.yml")

			_, err := eng.UpdateSources(ctx, []string{bad, missing, good})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.RenderDocument(ctx, "", "{{host}}")).To(Equal("ok"))
		})

		It("reads JSON and properties sources alongside YAML", func() {
			y := writeFile(dir, "one.yml", "a: yaml\n")
			j := writeFile(dir, "two.json", `{"b": "json"}`)
			p := writeFile(dir, "three.properties", "c=props\n")

			_, err := eng.UpdateSources(ctx, []string{y, j, p})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.RenderDocument(ctx, "", "{{a}}/{{b}}/{{c}}")).To(Equal("yaml/json/props"))
		})
	})

	Describe("stored configuration workflow", func() {
		It("persists a record and resolves documents through it", func() {
			src := writeFile(dir, "cfg/billing.yml", "db: billing-db\n")

			saved, err := eng.SetServiceConfiguration(ctx, types.ServiceConfig{
				ServiceName: "billing",
				Environment: "dev",
				YAMLPaths:   []string{src},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.ServiceName).To(Equal("billing"))

			// A fresh engine over the same store sees the record.
			eng2 := engine.New(configstore.NewInDir(dir), nil, nil)
			defer eng2.Bus().Close()

			docPath := filepath.Join(dir, "work", "billing", "app.yml")
			record, ok, err := eng2.ResolveDocument(ctx, docPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(record.YAMLPaths).To(Equal([]string{src}))

			Expect(eng2.RenderDocument(ctx, docPath, "db: {{db}}\n")).To(Equal("db: billing-db\n"))
		})

		It("rejects incomplete records", func() {
			_, err := eng.SetServiceConfiguration(ctx, types.ServiceConfig{
				ServiceName: "billing",
			})
			Expect(err).To(MatchError(engine.ErrInvalidRecord))
		})

		It("replaces records case-insensitively and preserves casing", func() {
			_, err := eng.SetServiceConfiguration(ctx, types.ServiceConfig{
				ServiceName: "Billing", Environment: "Dev", YAMLPaths: []string{"/a.yml"},
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.SetServiceConfiguration(ctx, types.ServiceConfig{
				ServiceName: "billing", Environment: "DEV", YAMLPaths: []string{"/b.yml"},
			})
			Expect(err).NotTo(HaveOccurred())

			records, err := eng.ListConfigurations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ServiceName).To(Equal("billing"))
			Expect(records[0].YAMLPaths).To(Equal([]string{"/b.yml"}))
		})

		It("emits events for the whole lifecycle", func() {
			_, err := eng.SetServiceConfiguration(ctx, types.ServiceConfig{
				ServiceName: "billing", Environment: "dev", YAMLPaths: []string{"/a.yml"},
			})
			Expect(err).NotTo(HaveOccurred())

			removed, err := eng.RemoveConfiguration(ctx, "BILLING", "dev")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))

			Expect(eng.WipeConfigurations(ctx)).To(Succeed())

			var seen []event.Type
			for _, e := range events {
				seen = append(seen, e.Type)
			}
			Expect(seen).To(ContainElements(
				event.ConfigSaved,
				event.ConfigActivated,
				event.ConfigRemoved,
				event.ConfigWiped,
			))
		})
	})

	Describe("central settings discovery", func() {
		var root string

		BeforeEach(func() {
			root = filepath.Join(dir, "central")
			writeFile(root, "application.yml", "region: eu\n")
			writeFile(root, "application-prod.yml", "region: us\n")
			writeFile(root, filepath.Join("billing", "billing.yml"), "db: billing-db\n")
			writeFile(root, filepath.Join("billing", "billing-prod.yml"), "db: billing-prod\n")
			writeFile(root, filepath.Join("orders", "application.yaml"), "db: orders-db\n")
		})

		It("derives one record per service with layered paths", func() {
			records, err := eng.Discover(root)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))

			Expect(records[0].ServiceName).To(Equal("billing"))
			Expect(records[0].Environment).To(Equal(types.EnvironmentAll))
			Expect(records[0].YAMLPaths).To(Equal([]string{
				filepath.Join(root, "application.yml"),
				filepath.Join(root, "application-prod.yml"),
				filepath.Join(root, "billing", "billing.yml"),
				filepath.Join(root, "billing", "billing-prod.yml"),
			}))

			Expect(records[1].ServiceName).To(Equal("orders"))
			Expect(records[1].YAMLPaths).To(ContainElement(
				filepath.Join(root, "orders", "application.yaml"),
			))
		})

		It("imports records and serves documents from them", func() {
			_, err := eng.ImportDiscovered(ctx, root)
			Expect(err).NotTo(HaveOccurred())

			docPath := filepath.Join(dir, "work", "billing", "deploy.yml")
			rendered := eng.RenderDocument(ctx, docPath, "db: {{db}}\nregion: {{region}}\n")
			// Later layers win: prod values override base ones.
			Expect(rendered).To(Equal("db: billing-prod\nregion: us\n"))

			var imported bool
			for _, e := range events {
				if e.Type == event.SettingsImported {
					imported = true
				}
			}
			Expect(imported).To(BeTrue())
		})
	})

	Describe("diagnostics", func() {
		It("classifies every malformed placeholder shape", func() {
			src := writeFile(dir, "vars.yml", "defined: yes\n")
			_, err := eng.UpdateSources(ctx, []string{src})
			Expect(err).NotTo(HaveOccurred())

			doc := "a: {{defined}}\nb: {{ spaced }}\nc: {{}}\nd: {{bad-char}}\ne: {{missing}}\n"
			diags := eng.ValidateDocument(ctx, "", doc)
			Expect(diags).To(HaveLen(4))

			codes := make([]string, len(diags))
			for i, d := range diags {
				codes[i] = d.Code
			}
			Expect(codes).To(Equal([]string{
				types.CodeSpacesNotAllowed,
				types.CodeEmptyPlaceholder,
				types.CodeInvalidCharacters,
				types.CodeUndefinedVariable,
			}))

			// Line and character positions are zero-based.
			Expect(diags[0].Range.Start.Line).To(Equal(1))
			Expect(diags[0].Range.Start.Character).To(Equal(3))
		})

		It("suggests close variable names for undefined placeholders", func() {
			src := writeFile(dir, "vars.yml", "hostname: example.com\n")
			_, err := eng.UpdateSources(ctx, []string{src})
			Expect(err).NotTo(HaveOccurred())

			diags := eng.ValidateDocument(ctx, "", "h: {{hostnme}}\n")
			Expect(diags).To(HaveLen(1))
			Expect(diags[0].Message).To(ContainSubstring("hostname"))
		})
	})
})
