// Package seed fills empty stores with default accounts and sample videos.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rentvideo/internal/account"
	"rentvideo/internal/catalog"
)

//go:embed data.yaml
var defaultData []byte

// Data is the seed file layout.
type Data struct {
	Users  []User  `yaml:"users"`
	Videos []Video `yaml:"videos"`
}

type User struct {
	Username    string       `yaml:"username"`
	Password    string       `yaml:"password"`
	FullName    string       `yaml:"full_name"`
	Email       string       `yaml:"email"`
	PhoneNumber string       `yaml:"phone_number"`
	Role        account.Role `yaml:"role"`
}

type Video struct {
	Title             string `yaml:"title"`
	Description       string `yaml:"description"`
	Director          string `yaml:"director"`
	Genre             string `yaml:"genre"`
	ReleaseYear       int    `yaml:"release_year"`
	DurationMinutes   int    `yaml:"duration_minutes"`
	RentalPricePerDay string `yaml:"rental_price_per_day"`
	TotalCopies       int    `yaml:"total_copies"`
}

// Default returns the built-in seed data.
func Default() (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(defaultData, &d); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	return &d, nil
}

// Result counts what a run created.
type Result struct {
	Users  int
	Videos int
}

// Run creates the users when no account exists and the videos when the
// catalog is empty. Running it again on populated stores does nothing.
func Run(ctx context.Context, data *Data, accounts account.Service, videos catalog.Service, logger *zap.Logger) (Result, error) {
	logger = logger.Named("seed")
	var res Result

	userCount, err := accounts.CountUsers(ctx)
	if err != nil {
		return res, err
	}
	if userCount == 0 {
		for _, u := range data.Users {
			_, err := accounts.CreateWithRole(ctx, account.RegisterInput{
				Username:    u.Username,
				Password:    u.Password,
				FullName:    u.FullName,
				Email:       u.Email,
				PhoneNumber: u.PhoneNumber,
			}, u.Role)
			if err != nil {
				return res, fmt.Errorf("seed user %s: %w", u.Username, err)
			}
			res.Users++
		}
		logger.Info("default users created", zap.Int("count", res.Users))
	}

	videoCount, err := videos.CountVideos(ctx)
	if err != nil {
		return res, err
	}
	if videoCount == 0 {
		for _, v := range data.Videos {
			price, err := decimal.NewFromString(v.RentalPricePerDay)
			if err != nil {
				return res, fmt.Errorf("seed video %s: price: %w", v.Title, err)
			}
			_, err = videos.AddVideo(ctx, catalog.VideoInput{
				Title:             v.Title,
				Description:       v.Description,
				Director:          v.Director,
				Genre:             v.Genre,
				ReleaseYear:       v.ReleaseYear,
				DurationMinutes:   v.DurationMinutes,
				RentalPricePerDay: price,
				TotalCopies:       v.TotalCopies,
			})
			if err != nil {
				return res, fmt.Errorf("seed video %s: %w", v.Title, err)
			}
			res.Videos++
		}
		logger.Info("sample videos created", zap.Int("count", res.Videos))
	}

	return res, nil
}
