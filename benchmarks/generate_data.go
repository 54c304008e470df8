package main

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"spexregister/models"

	"github.com/bytedance/sonic"
)

var (
	firstNames = []string{
		"Anna", "Erik", "Karin", "Lars", "Maria", "Johan", "Eva", "Per",
		"Lena", "Anders", "Sara", "Nils", "Ingrid", "Olof", "Frida", "Gustav",
	}

	lastNames = []string{
		"Andersson", "Johansson", "Karlsson", "Nilsson", "Eriksson",
		"Larsson", "Olsson", "Persson", "Svensson", "Gustafsson",
	}

	nickNames = []string{"Kalle", "Nisse", "Lillen", "Bullen", "Myran", "Tjocka", "Lången", ""}

	titles = []string{"Napoleon", "Charles XII", "Anna Karenina", "Nobel", "Starkodder", "Gustav Vasa", "Bojan", "Fredman"}

	spexCategories = []string{"Chalmersspexet", "Vasaspexet", "Jubelspex"}

	tasks = []struct {
		name     string
		category string
	}{
		{"Skådespelare", "Scen"},
		{"Kör", "Scen"},
		{"Dansare", "Scen"},
		{"Orkester", "Musik"},
		{"Kapellmästare", "Musik"},
		{"Scenbygge", "Teknik"},
		{"Ljus", "Teknik"},
		{"Regi", "Produktion"},
	}

	vocals      = []string{"S1", "S2", "A1", "A2", "T1", "T2", "B1", "B2"}
	tagNames    = []string{"Orkester", "Kör", "Styrelse", "Hedersmedlem", "Veteran"}
	cities      = []string{"Göteborg", "Stockholm", "Malmö", "Uppsala", "Lund"}
	memberships = []string{"FGV", "CING"}
	consents    = []string{"PUBLISHING", "NEWSLETTER"}
	toggles     = []string{"ACTIVE", "DECEASED"}
)

func pick[T any](arr []T) T {
	return arr[rand.IntN(len(arr))]
}

func year() string {
	return strconv.Itoa(1948 + rand.IntN(76))
}

func generateSpexare(id int) models.Spexare {
	first, last := pick(firstNames), pick(lastNames)
	sp := models.Spexare{
		ID:         int64(id),
		FirstName:  first,
		LastName:   last,
		NickName:   pick(nickNames),
		Graduation: "K" + year()[2:],
		Addresses: []models.Address{{
			Type:          &models.Type{ID: "HOME", Label: "Hem"},
			StreetAddress: fmt.Sprintf("Spexargatan %d", rand.IntN(100)+1),
			PostalCode:    fmt.Sprintf("4%02d %02d", rand.IntN(100), rand.IntN(100)),
			City:          pick(cities),
			Country:       "Sverige",
			EmailAddress:  fmt.Sprintf("%s.%s%d@example.org", first, last, id),
		}},
	}

	for range rand.IntN(4) + 1 {
		task := pick(tasks)
		activity := models.Activity{
			SpexActivity: &models.SpexActivity{Spex: models.Spex{
				Year: year(),
				Details: models.SpexDetails{
					Title:    pick(titles),
					Category: models.Category{Name: pick(spexCategories)},
				},
			}},
			TaskActivities: []models.TaskActivity{{
				Task: models.Task{Name: task.name, Category: models.Category{Name: task.category}},
			}},
		}
		if task.category == "Scen" {
			activity.TaskActivities[0].Actors = []models.Actor{{
				Role:  pick(titles),
				Vocal: &models.Type{ID: pick(vocals)},
			}}
		}
		sp.Activities = append(sp.Activities, activity)
	}

	if rand.Float32() < 0.4 {
		sp.Tags = append(sp.Tags, models.Tag{Name: pick(tagNames)})
	}
	if rand.Float32() < 0.6 {
		sp.Memberships = append(sp.Memberships, models.Membership{Year: year(), Type: models.Type{ID: pick(memberships)}})
	}
	for _, c := range consents {
		sp.Consents = append(sp.Consents, models.Consent{Value: rand.Float32() < 0.7, Type: models.Type{ID: c}})
	}
	sp.Toggles = append(sp.Toggles, models.Toggle{Value: rand.Float32() < 0.9, Type: models.Type{ID: pick(toggles)}})

	return sp
}

func writeFile(filename string, size int) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for i := 1; i <= size; i++ {
		data, err := sonic.Marshal(generateSpexare(i))
		if err != nil {
			return fmt.Errorf("error marshaling spexare: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return w.Flush()
}

func main() {
	if err := os.MkdirAll("benchmarks", 0755); err != nil {
		fmt.Printf("Error creating directory: %v\n", err)
		os.Exit(1)
	}

	// Generate different dataset sizes
	sizes := []int{1000, 5000, 10000}

	for _, size := range sizes {
		filename := fmt.Sprintf("benchmarks/spexare_%d.jsonl", size)
		fmt.Printf("Generating %d spexare to %s...\n", size, filename)

		if err := writeFile(filename, size); err != nil {
			fmt.Printf("Error writing %s: %v\n", filename, err)
			os.Exit(1)
		}
	}

	fmt.Printf("\nImport with: spexregister import --format jsoneachrow benchmarks/spexare_1000.jsonl\n")
}
