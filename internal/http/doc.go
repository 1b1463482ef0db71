// Package http provides HTTP handlers and middleware for the grant tracker API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","principal":{"user_id","display_name","is_admin",
//     "organization_ids"}} with the token also surfaced via the `X-Session-Token`
//     header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted from
//     the Authorization header or session cookie. Returns 204 No Content and
//     clears the cookie.
//   - GET /sessions?organizationYearId=, POST /sessions, GET/PATCH/DELETE
//     /sessions/{id}: program session management exchanging the `sessionDTO`
//     payload defined in session_handler.go. Updates reconcile the submitted
//     weekly schedule against the stored one and are rejected while students
//     remain registered on a removed weekday.
//   - GET /sessions/{id}/registrations?weekday=, POST /sessions/{id}/registrations,
//     POST /sessions/{id}/registrations/copy, DELETE
//     /registrations?studentSchoolYearId=&dayScheduleId=: student registration
//     endpoints. The copy body may name a subset of the source roster via
//     `student_school_year_ids`; an empty list copies everyone. Scheduling
//     conflicts are reported with 409 and a `conflicts` list; a conflicting
//     registration persists nothing.
//   - GET/POST /sessions/{id}/attendance, GET
//     /sessions/{id}/attendance/open-dates?weekday=, GET/PATCH/DELETE
//     /attendance/{id}, GET /organization-years/{id}/attendance/missing:
//     attendance record endpoints exchanging the `attendanceDTO` payload defined
//     in attendance_handler.go.
//   - GET /organizations, GET /organizations/{id}/years, GET/POST
//     /organizations/{id}/blackout-dates, DELETE
//     /organizations/{id}/blackout-dates/{blackoutId}, and the session scoped
//     equivalents under /sessions/{id}/blackout-dates: organization catalog and
//     blackout date management.
//   - GET/POST /organization-years/{id}/students: roster listing and enrollment.
//   - POST /users: administrator controlled account provisioning exchanging the
//     `userDTO` payload defined in user_handler.go.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
