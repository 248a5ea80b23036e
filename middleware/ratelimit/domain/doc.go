// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
//
// O modelo é de janela fixa: uma Window por (Key, Scope), reiniciada quando
// o tamanho da janela passa. Uma rajada que atravessa a fronteira entre duas
// janelas pode chegar a 2x o limite; isso é aceito.
package domain
