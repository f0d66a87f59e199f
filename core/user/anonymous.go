package user

import (
	"encoding/json"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/unbfeelings/backend/assets"
)

var (
	cityNames     []string
	cityNamesErr  error
	cityNamesOnce sync.Once

	randIntn = rand.Intn // mockable
)

func loadCityNames() ([]string, error) {
	cityNamesOnce.Do(func() {
		if cityNamesErr = json.Unmarshal(assets.CityNames, &cityNames); cityNamesErr != nil {
			cityNamesErr = errors.Wrap(cityNamesErr, "decoding city names")
		} else if len(cityNames) == 0 {
			cityNamesErr = errors.New("no city names")
		}
	})
	return cityNames, cityNamesErr
}

// AnonymousName returns a random city name for a student to post under.
func AnonymousName() (string, error) {
	names, err := loadCityNames()
	if err != nil {
		return "", err
	}
	return names[randIntn(len(names))], nil
}
