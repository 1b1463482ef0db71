package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Sessions      *SessionHandler
	Registrations *RegistrationHandler
	Attendance    *AttendanceHandler
	Organizations *OrganizationHandler
	Users         *UserHandler

	// RequireSession guards every route except /login when set.
	RequireSession func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			segments := splitPath(strings.TrimPrefix(r.URL.Path, "/sessions/"))
			if len(segments) == 0 {
				http.NotFound(w, r)
				return
			}

			if segments[0] == "current" && len(segments) == 1 {
				if cfg.Auth == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				cfg.Auth.Logout(w, r)
				return
			}

			r = r.WithContext(ContextWithPathID(r.Context(), segments[0]))

			switch {
			case len(segments) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Sessions.Get(w, r)
				case http.MethodPatch:
					cfg.Sessions.Update(w, r)
				case http.MethodDelete:
					cfg.Sessions.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case segments[1] == "registrations" && cfg.Registrations != nil:
				switch {
				case len(segments) == 2:
					switch r.Method {
					case http.MethodGet:
						cfg.Registrations.List(w, r)
					case http.MethodPost:
						cfg.Registrations.Create(w, r)
					default:
						methodNotAllowed(w, http.MethodGet, http.MethodPost)
					}
				case len(segments) == 3 && segments[2] == "copy":
					if r.Method != http.MethodPost {
						methodNotAllowed(w, http.MethodPost)
						return
					}
					cfg.Registrations.Copy(w, r)
				default:
					http.NotFound(w, r)
				}
			case segments[1] == "attendance" && cfg.Attendance != nil:
				switch {
				case len(segments) == 2:
					switch r.Method {
					case http.MethodGet:
						cfg.Attendance.List(w, r)
					case http.MethodPost:
						cfg.Attendance.Create(w, r)
					default:
						methodNotAllowed(w, http.MethodGet, http.MethodPost)
					}
				case len(segments) == 3 && segments[2] == "open-dates":
					if r.Method != http.MethodGet {
						methodNotAllowed(w, http.MethodGet)
						return
					}
					cfg.Attendance.OpenDates(w, r)
				default:
					http.NotFound(w, r)
				}
			case segments[1] == "blackout-dates" && cfg.Organizations != nil:
				switch {
				case len(segments) == 2:
					switch r.Method {
					case http.MethodGet:
						cfg.Organizations.ListSessionBlackoutDates(w, r)
					case http.MethodPost:
						cfg.Organizations.AddSessionBlackoutDate(w, r)
					default:
						methodNotAllowed(w, http.MethodGet, http.MethodPost)
					}
				case len(segments) == 3:
					if r.Method != http.MethodDelete {
						methodNotAllowed(w, http.MethodDelete)
						return
					}
					r = r.WithContext(ContextWithSubPathID(r.Context(), segments[2]))
					cfg.Organizations.RemoveSessionBlackoutDate(w, r)
				default:
					http.NotFound(w, r)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Registrations != nil {
		mux.HandleFunc("/registrations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Registrations.Delete(w, r)
		})
	}

	if cfg.Attendance != nil {
		mux.HandleFunc("/attendance/", func(w http.ResponseWriter, r *http.Request) {
			segments := splitPath(strings.TrimPrefix(r.URL.Path, "/attendance/"))
			if len(segments) != 1 {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathID(r.Context(), segments[0]))
			switch r.Method {
			case http.MethodGet:
				cfg.Attendance.Get(w, r)
			case http.MethodPatch:
				cfg.Attendance.Update(w, r)
			case http.MethodDelete:
				cfg.Attendance.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Organizations != nil {
		mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Organizations.List(w, r)
		})
		mux.HandleFunc("/organizations/", func(w http.ResponseWriter, r *http.Request) {
			segments := splitPath(strings.TrimPrefix(r.URL.Path, "/organizations/"))
			if len(segments) < 2 {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathID(r.Context(), segments[0]))
			switch {
			case segments[1] == "years" && len(segments) == 2:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Organizations.ListYears(w, r)
			case segments[1] == "blackout-dates" && len(segments) == 2:
				switch r.Method {
				case http.MethodGet:
					cfg.Organizations.ListBlackoutDates(w, r)
				case http.MethodPost:
					cfg.Organizations.AddBlackoutDate(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case segments[1] == "blackout-dates" && len(segments) == 3:
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				r = r.WithContext(ContextWithSubPathID(r.Context(), segments[2]))
				cfg.Organizations.RemoveBlackoutDate(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/organization-years/", func(w http.ResponseWriter, r *http.Request) {
			segments := splitPath(strings.TrimPrefix(r.URL.Path, "/organization-years/"))
			if len(segments) < 2 {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathID(r.Context(), segments[0]))
			switch {
			case segments[1] == "students" && len(segments) == 2:
				switch r.Method {
				case http.MethodGet:
					cfg.Organizations.ListStudents(w, r)
				case http.MethodPost:
					cfg.Organizations.EnrollStudent(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case segments[1] == "attendance" && len(segments) == 3 && segments[2] == "missing" && cfg.Attendance != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Attendance.Missing(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Users != nil {
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Create(w, r)
		})
	}

	var protected http.Handler = mux
	if cfg.RequireSession != nil {
		protected = cfg.RequireSession(protected)
	}

	root := http.NewServeMux()
	if cfg.Auth != nil {
		root.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
	}
	root.Handle("/", protected)

	var handler http.Handler = root
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
