// internal/report/email.go

// Package report renders the new-business digest and sends it through SES.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/errors"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/validation"
	"kc-restaurants/internal/models"
	"kc-restaurants/internal/predictor"
)

// EmailSender is the transport for the rendered digest.
type EmailSender interface {
	SendHTMLEmail(ctx context.Context, from string, to []string, subject, htmlBody string) error
}

type Reporter struct {
	sender EmailSender
	cfg    config.EmailConfig
	log    logger.Logger
}

func New(sender EmailSender, cfg config.EmailConfig, log logger.Logger) *Reporter {
	return &Reporter{sender: sender, cfg: cfg, log: log}
}

const digestTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #212121;">
  <h2>New Food Businesses - {{.Date}}</h2>
  <p>
    Processed {{.Stats.TotalRecords}} license records,
    {{.Stats.FoodBusinesses}} food businesses,
    {{.Stats.NewBusinesses}} new this run
    ({{.Stats.Enriched}} enriched).
  </p>
  {{if .Businesses}}
  <table border="0" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
    <tr style="background: #eeeeee;">
      <th align="left">Business</th>
      <th align="left">Address</th>
      <th align="left">Cuisine</th>
      <th align="left">Predicted</th>
      <th align="left">Confidence</th>
    </tr>
    {{range .Businesses}}
    <tr style="border-bottom: 1px solid #e0e0e0;">
      <td>{{.Name}}</td>
      <td>{{.Address}}</td>
      <td>{{.Cuisine}}</td>
      <td>
        {{if .HasPrediction}}
        <span style="color: {{.GradeColor}}; font-weight: bold;">{{.Grade}}</span>
        ({{printf "%.1f" .Rating}})
        {{else}}
        &mdash;
        {{end}}
      </td>
      <td>
        {{if .HasPrediction}}
        {{.ConfidenceLevel}} ({{.ConfidencePercentage}}%)
        {{else}}
        not enriched
        {{end}}
      </td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p>No new food businesses this run.</p>
  {{end}}
</body>
</html>`

var digestTmpl = template.Must(template.New("digest").Parse(digestTemplate))

type digestRow struct {
	Name                 string
	Address              string
	Cuisine              string
	HasPrediction        bool
	Rating               float64
	Grade                string
	GradeColor           string
	ConfidenceLevel      string
	ConfidencePercentage int
}

type digestData struct {
	Date       string
	Stats      models.RunStats
	Businesses []digestRow
}

// Render produces the digest subject and HTML body for one run.
func Render(stats models.RunStats, businesses []*models.BusinessRecord, at time.Time) (string, string, error) {
	data := digestData{
		Date:  at.Format("January 2, 2006"),
		Stats: stats,
	}

	for _, rec := range businesses {
		row := digestRow{
			Name:    rec.SearchName(),
			Address: rec.Address,
			Cuisine: rec.CuisineType,
		}
		if rec.AIPredictedRating != nil {
			row.HasPrediction = true
			row.Rating = *rec.AIPredictedRating
			row.Grade = rec.AIPredictedGrade
			row.GradeColor = predictor.GradeColor(rec.AIPredictedGrade)
			row.ConfidenceLevel = rec.AIConfidenceLevel
			if rec.AIConfidencePercentage != nil {
				row.ConfidencePercentage = *rec.AIConfidencePercentage
			}
		}
		data.Businesses = append(data.Businesses, row)
	}

	var body bytes.Buffer
	if err := digestTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render digest: %w", err)
	}

	subject := fmt.Sprintf("%d New Food Businesses - %s", stats.NewBusinesses, data.Date)
	return subject, body.String(), nil
}

// SendDigest renders and delivers the digest for one run. Disabled email or
// an empty recipient list is a quiet no-op.
func (r *Reporter) SendDigest(ctx context.Context, stats models.RunStats, businesses []*models.BusinessRecord) error {
	if !r.cfg.Enabled {
		r.log.Debug("digest email disabled", nil)
		return nil
	}

	recipients := make([]string, 0, len(r.cfg.Recipients))
	for _, addr := range r.cfg.Recipients {
		if validation.ValidateEmail(addr) {
			recipients = append(recipients, addr)
		} else {
			r.log.Warn("dropping invalid digest recipient", map[string]interface{}{"address": addr})
		}
	}
	if len(recipients) == 0 {
		r.log.Warn("no valid digest recipients configured", nil)
		return nil
	}

	subject, body, err := Render(stats, businesses, time.Now())
	if err != nil {
		return err
	}

	if err := r.sender.SendHTMLEmail(ctx, r.cfg.FromEmail, recipients, subject, body); err != nil {
		return errors.NewDigestSendFailedError(err)
	}

	r.log.Info("digest sent", map[string]interface{}{
		"recipients": len(recipients),
		"businesses": len(businesses),
	})
	return nil
}
