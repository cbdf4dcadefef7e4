// Package claims construye el principal que se entrega al emisor de tokens y
// decide, claim por claim, en qué token termina (access y/o id_token).
//
// Hay dos políticas de destino y no son intercambiables:
//
//   - Scoped: usada por /connect/authorize. Name, PreferredUsername, Email y Role
//     van siempre al access token y al id_token sólo si el scope
//     correspondiente (profile, email, roles) fue otorgado.
//   - DirectGrant: usada por /connect/token. Todo claim va al access token; al
//     id_token sólo name, email, sub, given_name y family_name, sin mirar scopes.
//
// En ambas el security stamp nunca se emite.
package claims
