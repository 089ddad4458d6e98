package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/toblum/McGarager/internal/config"
)

// Form field names.
const (
	fieldHost      = "mqttHost"
	fieldPort      = "mqttPort"
	fieldUser      = "mqttUser"
	fieldPass      = "mqttPass"
	fieldTopic     = "mqttTopic"
	fieldAdminPass = "adminPass"
)

// configForm is the data behind the configuration page.
type configForm struct {
	ThingName string
	Host      string
	Port      string
	User      string
	Topic     string
	Errors    config.FieldErrors
	Saved     bool
	Failure   string
}

func formFromSettings(c config.Settings) configForm {
	return configForm{
		ThingName: c.ThingName,
		Host:      c.MQTT.Host,
		Port:      c.MQTT.Port,
		User:      c.MQTT.Username,
		Topic:     c.MQTT.Topic,
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		renderConfig(w, formFromSettings(s.store.Get()))
	case http.MethodPost:
		s.saveConfig(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	log.Printf("web: validating configuration form")

	var adminHash string
	if p := r.PostFormValue(fieldAdminPass); p != "" {
		h, err := config.HashPassword(p)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		adminHash = h
	}

	err := s.store.Update(func(c *config.Settings) {
		c.MQTT.Host = strings.TrimSpace(r.PostFormValue(fieldHost))
		c.MQTT.Port = strings.TrimSpace(r.PostFormValue(fieldPort))
		c.MQTT.Username = r.PostFormValue(fieldUser)
		c.MQTT.Topic = strings.TrimSpace(r.PostFormValue(fieldTopic))
		// Blank password fields keep the stored value.
		if p := r.PostFormValue(fieldPass); p != "" {
			c.MQTT.Password = p
		}
		if adminHash != "" {
			c.AdminPasswordHash = adminHash
		}
	})

	form := formFromSettings(s.store.Get())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var fe config.FieldErrors
	switch {
	case errors.As(err, &fe):
		// Echo what was submitted so the user can correct it.
		form.Host = r.PostFormValue(fieldHost)
		form.Port = r.PostFormValue(fieldPort)
		form.User = r.PostFormValue(fieldUser)
		form.Topic = r.PostFormValue(fieldTopic)
		form.Errors = fe
		w.WriteHeader(http.StatusBadRequest)
	case err != nil:
		log.Printf("web: save configuration: %v", err)
		form.Failure = "Saving failed, see the daemon log."
		w.WriteHeader(http.StatusInternalServerError)
	default:
		form.Saved = true
	}
	renderConfig(w, form)
}
