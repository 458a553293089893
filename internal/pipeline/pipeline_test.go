package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"filesdash/xref/internal/config"
	"filesdash/xref/internal/db"
	"filesdash/xref/internal/export"
	"filesdash/xref/internal/graph"
)

var fixture = map[string]string{
	"persons_of_interest/entities.csv": "name,entity_type\n" +
		"John Doe,person\n" +
		"Jane Roe,person\n",
	"persons_of_interest/kaggle.csv": "Persons of Interest,In Black Book,Nationality,Category\n" +
		"\"Doe, John\",Yes,American,Business\n" +
		"Bill Poe,No,British,Royalty\n",
	"flight_logs/flights.csv": "date,departure,arrival,aircraft,passengers\n" +
		"2002-03-04,Teterboro,Palm Beach,N908JE,John Doe; Jane Roe\n" +
		"2003-01-01,Palm Beach,Teterboro,N908JE,\"Doe, John; Bill Poe\"\n",
	"documents/ranked.csv": "filename,headline,importance_score,tags,power_mentions\n" +
		"doc-1.pdf,Deposition transcript,87,,\n" +
		"doc-2.pdf,Letter,42,correspondence,['Jane Roe']\n",
	"relationships/a.csv": "source,target,relationship_type\n" +
		"John Doe,Jane Roe,associate\n" +
		"Jane Roe,Bill Poe,friend\n",
	"relationships/b.csv": "source,target,relationship_type\n" +
		"\"Doe, John\",Jane Roe,associate\n",
	"relationships/c.csv": "source,target,relationship_type\n" +
		"Jane Roe,John Doe,employer\n",
	"emails/emails.csv": "date,from,to,subject\n" +
		"2004-05-06,John Doe,Jane Roe,Schedule\n",
	"image_index.json": `{"John Doe": [{"path": "img/john.jpg", "category": "portrait"}]}`,
}

// writeFixture lays files out under a fresh data root, skipping any name in omit.
func writeFixture(t *testing.T, omit ...string) string {
	t.Helper()
	root := t.TempDir()
	skip := make(map[string]bool, len(omit))
	for _, name := range omit {
		skip[name] = true
	}
	for name, content := range fixture {
		if skip[name] || skip[filepath.Dir(name)] {
			continue
		}
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testConfig(t *testing.T, dataDir string) *config.Config {
	t.Helper()
	assets := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assets, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "img", "john.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.New()
	cfg.DataDir = dataDir
	cfg.ImageIndex = filepath.Join(dataDir, "image_index.json")
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.AssetRoot = assets
	cfg.Workers = 4
	return cfg
}

func readDoc(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatal(err)
	}
}

func TestPipelineRun(t *testing.T) {
	Convey("Given a data root with every table", t, func() {
		cfg := testConfig(t, writeFixture(t))
		ctx := context.Background()

		Convey("When running the pipeline", func() {
			report, err := New(cfg).Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then all five documents should be written", func() {
				So(report.Outputs, ShouldHaveLength, len(export.Files))
				for _, name := range export.Files {
					_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
					So(err, ShouldBeNil)
				}
				So(report.SkippedRows, ShouldEqual, 0)
				So(report.CoPassenger, ShouldBeFalse)
			})

			Convey("Then name variants should merge into one person", func() {
				var persons []export.PersonDoc
				readDoc(t, cfg.OutputDir, export.PersonsFile, &persons)
				So(persons, ShouldHaveLength, 3)

				john := persons[0]
				So(john.ID, ShouldEqual, "john-doe")
				So(john.InBlackBook, ShouldBeTrue)
				So(john.Nationality, ShouldEqual, "American")
				So(john.Category, ShouldEqual, "Business")
				So(john.Aliases, ShouldResemble, []string{"Doe, John", "John Doe"})
				So(john.Flights, ShouldEqual, 2)
				So(john.Images, ShouldResemble, []export.ImageDoc{{Path: "img/john.jpg", Category: "portrait"}})

				So(persons[1].ID, ShouldEqual, "jane-roe")
				So(persons[1].Documents, ShouldEqual, 1)
				So(persons[2].ID, ShouldEqual, "bill-poe")
			})

			Convey("Then a semicolon manifest should credit both passengers", func() {
				var flights []export.FlightDoc
				readDoc(t, cfg.OutputDir, export.FlightsFile, &flights)
				So(flights, ShouldHaveLength, 2)
				So(flights[0].Date, ShouldEqual, "2002-03-04")
				So(flights[0].Passengers, ShouldEqual, "John Doe; Jane Roe")
				So(flights[1].Passengers, ShouldEqual, "Doe, John; Bill Poe")
			})

			Convey("Then a scored document without tags should still be exported", func() {
				var docs []export.DocumentDoc
				readDoc(t, cfg.OutputDir, export.DocumentsFile, &docs)
				So(docs, ShouldHaveLength, 2)
				So(docs[0].ImportanceScore, ShouldEqual, 87)
				So(docs[0].Tags, ShouldBeEmpty)

				data, err := os.ReadFile(filepath.Join(cfg.OutputDir, export.SummaryFile))
				So(err, ShouldBeNil)
				var summary struct {
					TotalDocuments int `json:"total_documents"`
				}
				So(json.Unmarshal(data, &summary), ShouldBeNil)
				So(summary.TotalDocuments, ShouldEqual, 2)
				So(bytes.Contains(data, []byte(`"80-89": 1`)), ShouldBeTrue)
				So(bytes.Contains(data, []byte(`"correspondence": 1`)), ShouldBeTrue)
			})

			Convey("Then edges from three files should merge into one weighted link", func() {
				var network export.NetworkDoc
				readDoc(t, cfg.OutputDir, export.NetworkFile, &network)
				So(network.Links, ShouldHaveLength, 2)

				top := network.Links[0]
				So(top.Source, ShouldEqual, "jane-roe")
				So(top.Target, ShouldEqual, "john-doe")
				So(top.Weight, ShouldEqual, 3)
				So(top.Types, ShouldResemble, []string{"associate", "employer"})
				So(top.Sources, ShouldResemble, []string{
					"relationships/a.csv:2", "relationships/b.csv:2", "relationships/c.csv:2",
				})
				So(network.Links[1].Source, ShouldEqual, "bill-poe")
				So(network.Links[1].Weight, ShouldEqual, 1)
			})

			Convey("Then node connections should equal their link counts", func() {
				var network export.NetworkDoc
				readDoc(t, cfg.OutputDir, export.NetworkFile, &network)
				degree := map[string]int{}
				for _, l := range network.Links {
					degree[l.Source]++
					degree[l.Target]++
				}
				So(network.Nodes, ShouldHaveLength, 3)
				So(network.Nodes[0].ID, ShouldEqual, "jane-roe")
				for _, n := range network.Nodes {
					So(n.Connections, ShouldEqual, degree[n.ID])
				}
			})

			Convey("Then the report should carry network health", func() {
				So(report.Links, ShouldEqual, 2)
				So(report.Resolution.Persons, ShouldEqual, 3)
				So(report.Health.Topology.NumComponents, ShouldEqual, 1)
				So(report.Health.Bridges.APCount, ShouldEqual, 1)
				So(report.Health.HealthScore, ShouldAlmostEqual, 0.675, 1e-9)
			})
		})

		Convey("When running twice", func() {
			first, err := New(cfg).Run(ctx)
			So(err, ShouldBeNil)
			firstDir := cfg.OutputDir
			cfg.OutputDir = filepath.Join(t.TempDir(), "again")
			_, err = New(cfg).Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then the documents should be byte-identical", func() {
				for _, f := range first.Outputs {
					a, err := os.ReadFile(filepath.Join(firstDir, f.Name))
					So(err, ShouldBeNil)
					b, err := os.ReadFile(filepath.Join(cfg.OutputDir, f.Name))
					So(err, ShouldBeNil)
					So(bytes.Equal(a, b), ShouldBeTrue)
				}
			})
		})

		Convey("When a referenced image is missing", func() {
			cfg.AssetRoot = t.TempDir()
			_, err := New(cfg).Run(ctx)

			Convey("Then the run should fail without writing output", func() {
				So(errors.Is(err, export.ErrMissingAsset), ShouldBeTrue)
				_, statErr := os.Stat(cfg.OutputDir)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When a snapshot database and metrics file are configured", func() {
			cfg.SnapshotDB = filepath.Join(t.TempDir(), "xref.db")
			cfg.MetricsFile = filepath.Join(t.TempDir(), "xref.prom")
			report, err := New(cfg).Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then the snapshot should hold persons and links", func() {
				So(report.RunID, ShouldNotBeEmpty)
				d, err := db.OpenDB(cfg.SnapshotDB)
				So(err, ShouldBeNil)
				defer d.Close()

				john, err := d.GetPerson("john-doe")
				So(err, ShouldBeNil)
				So(john.InNetwork, ShouldBeTrue)
				So(john.Connections, ShouldEqual, 1)
				So(john.Aliases, ShouldHaveLength, 2)

				links, err := d.AllLinks()
				So(err, ShouldBeNil)
				So(links, ShouldHaveLength, 2)
				So(links[0].Weight, ShouldEqual, 3)

				run, err := d.LatestRun()
				So(err, ShouldBeNil)
				So(run.ID, ShouldEqual, report.RunID)
				So(run.Persons, ShouldEqual, 3)
				So(run.DataDir, ShouldEqual, cfg.DataDir)
			})

			Convey("Then the metrics file should hold the run counters", func() {
				data, err := os.ReadFile(cfg.MetricsFile)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "xref_persons 3")
				So(string(data), ShouldContainSubstring, "xref_network_links 2")
				So(string(data), ShouldContainSubstring, `xref_rows_loaded_total{table="flight_logs"} 2`)
			})
		})
	})
}

func TestPipelineCoPassengerFallback(t *testing.T) {
	Convey("Given a data root without relationship files", t, func() {
		cfg := testConfig(t, writeFixture(t, "relationships"))
		ctx := context.Background()

		Convey("When the fallback is enabled", func() {
			report, err := New(cfg).Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then links should come from shared flights", func() {
				So(report.CoPassenger, ShouldBeTrue)
				So(report.Links, ShouldEqual, 2)

				var network export.NetworkDoc
				readDoc(t, cfg.OutputDir, export.NetworkFile, &network)
				for _, l := range network.Links {
					So(l.Weight, ShouldEqual, 1)
					So(l.Types, ShouldResemble, []string{graph.CoPassengerType})
				}
				So(network.Nodes[0].ID, ShouldEqual, "john-doe")
				So(network.Nodes[0].Connections, ShouldEqual, 2)
			})
		})

		Convey("When the fallback is disabled", func() {
			cfg.CoPassengerFallback = false
			report, err := New(cfg).Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then the network should have no links", func() {
				So(report.CoPassenger, ShouldBeFalse)
				So(report.Links, ShouldEqual, 0)
			})
		})
	})
}

func TestPipelineProcess(t *testing.T) {
	Convey("Given a loaded dataset", t, func() {
		cfg := testConfig(t, writeFixture(t))
		p := New(cfg)
		ds, err := p.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("When processing it", func() {
			res, err := p.Process(context.Background(), ds)
			So(err, ShouldBeNil)

			Convey("Then aggregate and network connections should agree", func() {
				for _, person := range res.Directory.Persons() {
					So(person.Connections, ShouldEqual, res.Network.Degree(person.ID))
				}
				So(res.Aggregate.Summary.TotalLinks, ShouldEqual, res.Network.Len())
			})

			Convey("Then the snapshot rows should mirror the result", func() {
				snap := Snapshot(ds, res)
				So(snap.Persons, ShouldHaveLength, 3)
				So(snap.Images, ShouldResemble, []db.Image{{PersonID: "john-doe", Path: "img/john.jpg", Category: "portrait"}})
				So(snap.Links, ShouldHaveLength, 2)
				So(snap.Run.Flights, ShouldEqual, 2)
				So(snap.Run.Emails, ShouldEqual, 1)
			})
		})
	})
}
