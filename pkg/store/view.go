// pkg/store/view.go
package store

// productionViewSQL aggregates the production progress of every course
// with a coordinator, outside Pós-Graduação, with more than five tickets
const productionViewSQL = `CREATE VIEW vw_analise_producao AS
WITH status_count AS (
    SELECT
        c.id AS curso_id,
        c.nome_curso AS curso,
        c.entidade AS entidade,
        c.coordenador_id AS coordenador_id,
        MIN(d.data_criacao) AS primeira_data_criacao,
        COUNT(*) AS total_disciplinas,
        SUM(CASE WHEN d.tipo_de_item = 'SR-Completa' AND d.status_conteudos = 'Fechado' THEN 1 ELSE 0 END) AS conteudo_fechado,
        SUM(CASE WHEN d.tipo_de_item = 'SR-Reuso' THEN 1 ELSE 0 END) AS disciplinas_reuso,
        SUM(CASE WHEN d.tipo_de_item = 'SR-Completa' AND d.status_videos = 'Fechado' THEN 1 ELSE 0 END) AS video_fechado,
        SUM(CASE WHEN d.tipo_de_item = 'SR-Reuso' AND d.status_videos = 'Fechado' THEN 1 ELSE 0 END) AS video_reuso
    FROM db_dpc_jira d
    JOIN cursos c ON d.curso_id = c.id
    WHERE c.entidade <> 'Pós-Graduação' AND c.coordenador_id IS NOT NULL
    GROUP BY c.id, c.nome_curso, c.entidade, c.coordenador_id
)
SELECT
    curso_id,
    coordenador_id,
    curso,
    entidade,
    primeira_data_criacao,
    total_disciplinas,
    conteudo_fechado,
    video_fechado,
    disciplinas_reuso,
    COALESCE(ROUND(conteudo_fechado * 100.0 / NULLIF(total_disciplinas - disciplinas_reuso, 0), 2), 0) AS prod_conteudo,
    COALESCE(ROUND(video_fechado * 100.0 / NULLIF(total_disciplinas - disciplinas_reuso, 0), 2), 0) AS prod_video,
    ROUND(((conteudo_fechado + disciplinas_reuso) * 100.0 / total_disciplinas
        + (video_fechado + disciplinas_reuso) * 100.0 / total_disciplinas) / 2, 2) AS prod_curso,
    CASE
        WHEN total_disciplinas - disciplinas_reuso = conteudo_fechado
            AND total_disciplinas - disciplinas_reuso = video_fechado THEN 'Completo'
        WHEN conteudo_fechado > 0 OR video_fechado > 0 THEN 'Em Andamento'
        ELSE 'Não Iniciado'
    END AS status_producao
FROM status_count
WHERE total_disciplinas > 5`
